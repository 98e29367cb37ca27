package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListFilter selects which auctions a listing returns.
type ListFilter string

const (
	FilterAll    ListFilter = "all"
	FilterActive ListFilter = "active"
	FilterClosed ListFilter = "closed"
	FilterWonBy  ListFilter = "won"
)

// AuctionRepository persists auction records. Writes take the transaction
// they run in; GetForUpdate locks the row so concurrent bid and close
// attempts on the same auction serialize at the store.
type AuctionRepository interface {
	Create(ctx context.Context, a *Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Auction, error)
	Save(ctx context.Context, tx pgx.Tx, a *Auction) error
	List(ctx context.Context, filter ListFilter, userID string) ([]*Auction, error)
}

// BidRepository persists the append-only bid log of each auction.
type BidRepository interface {
	Append(ctx context.Context, tx pgx.Tx, bid *Bid) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}
