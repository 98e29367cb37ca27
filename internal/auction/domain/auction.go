package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionState is the lifecycle state of an auction. The only transition is
// active -> closed; there is no reopening.
type AuctionState string

const (
	StateActive AuctionState = "active"
	StateClosed AuctionState = "closed"
)

// Auction is the mutable record tracking an item's current price, state and
// participants. It carries no lock of its own: all concurrent access is
// serialized by the store transaction that loads and saves it, so an
// instance is always private to one transaction attempt.
type Auction struct {
	ID            uuid.UUID
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	State         AuctionState

	// LastBidderID/Contact identify whoever set CurrentPrice; empty until
	// the first accepted bid. Contact is denormalized for display.
	LastBidderID      string
	LastBidderContact string

	// WinnerID/Contact are copied from the last bidder fields exactly once,
	// at the active -> closed transition, and never change afterwards.
	WinnerID      string
	WinnerContact string

	// ImageURL/ImagePath are opaque references into the external blob
	// store; the auction core never interprets them.
	ImageURL  string
	ImagePath string

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAuction creates an active auction with the current price initialized
// to the starting price.
func NewAuction(title, description string, startingPrice decimal.Decimal, createdBy, imageURL, imagePath string) (*Auction, error) {
	if !startingPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &Auction{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		StartingPrice: startingPrice,
		CurrentPrice:  startingPrice,
		State:         StateActive,
		ImageURL:      imageURL,
		ImagePath:     imagePath,
		CreatedBy:     createdBy,
	}, nil
}

// AcceptBid validates a bid attempt against the auction's current state and,
// on success, applies its effect: raises CurrentPrice, records the bidder
// and returns the Bid record to append to the log. The caller must hold the
// auction inside the same transaction that persists both writes.
func (a *Auction) AcceptBid(bidderID, bidderContact string, amount decimal.Decimal, now time.Time) (*Bid, error) {
	if bidderID == "" || bidderContact == "" {
		return nil, ErrInvalidBidder
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if a.State != StateActive {
		return nil, ErrAuctionClosed
	}
	if amount.Cmp(a.CurrentPrice) <= 0 {
		return nil, &BidTooLowError{CurrentPrice: a.CurrentPrice}
	}

	a.CurrentPrice = amount
	a.LastBidderID = bidderID
	a.LastBidderContact = bidderContact

	return &Bid{
		ID:            uuid.New(),
		AuctionID:     a.ID,
		BidderID:      bidderID,
		BidderContact: bidderContact,
		Amount:        amount,
		AcceptedAt:    now,
	}, nil
}

// Close performs the terminal active -> closed transition, capturing the
// last bidder as the winner. Winner fields stay empty if no bid was ever
// accepted.
func (a *Auction) Close() error {
	if a.State != StateActive {
		return ErrAlreadyClosed
	}
	a.State = StateClosed
	a.WinnerID = a.LastBidderID
	a.WinnerContact = a.LastBidderContact
	return nil
}

// HasBids reports whether at least one bid has been accepted.
func (a *Auction) HasBids() bool {
	return a.LastBidderID != ""
}
