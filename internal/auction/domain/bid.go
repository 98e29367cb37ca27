package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an accepted offer that raised an auction's price. Bids are
// append-only: created exactly once, inside the same transaction that
// updated the auction, and never mutated or deleted afterwards.
type Bid struct {
	ID            uuid.UUID
	AuctionID     uuid.UUID
	BidderID      string
	BidderContact string
	Amount        decimal.Decimal
	AcceptedAt    time.Time
}
