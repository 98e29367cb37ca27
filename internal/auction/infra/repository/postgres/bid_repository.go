package postgres

import (
	"context"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository on Postgres. The bids table
// is append-only: there is no update or delete path.
type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Append inserts the accepted bid inside the transaction that mutated its
// auction, so both writes commit as one atomic unit.
func (r *BidRepository) Append(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, bidder_contact, amount, accepted_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.BidderContact,
		bid.Amount,
		bid.AcceptedAt,
	)
	return err
}

// ListByAuction returns the full bid log of one auction ordered by
// accepted_at ascending.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, bidder_contact, amount, accepted_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY accepted_at ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&bid.BidderContact,
			&bid.Amount,
			&bid.AcceptedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}
