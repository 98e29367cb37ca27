package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres channel the write path announces committed
// auction changes on. The change notifier LISTENs on it.
const NotifyChannel = "auction_events"

const auctionColumns = `id, title, description, starting_price, current_price, state,
       last_bidder_id, last_bidder_contact, winner_id, winner_contact,
       image_url, image_path, created_by, created_at, updated_at`

// AuctionRepository implements domain.AuctionRepository on Postgres.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, description, starting_price, current_price, state,
                              last_bidder_id, last_bidder_contact, winner_id, winner_contact,
                              image_url, image_path, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING created_at, updated_at
    `
	// Timestamps are assigned by the database; read them back so the
	// caller's snapshot matches the stored row.
	return r.pool.QueryRow(ctx, query,
		a.ID,
		a.Title,
		a.Description,
		a.StartingPrice,
		a.CurrentPrice,
		string(a.State),
		a.LastBidderID,
		a.LastBidderContact,
		a.WinnerID,
		a.WinnerContact,
		a.ImageURL,
		a.ImagePath,
		a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return scanAuction(r.pool.QueryRow(ctx, query, id))
}

// GetForUpdate loads the auction row under a row lock inside tx. Every
// concurrent bid or close attempt on the same auction queues behind this
// lock and re-reads the committed state once it acquires it.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return scanAuction(tx.QueryRow(ctx, query, id))
}

// Save persists the mutable auction fields and announces the change on the
// notify channel within the same transaction, so the notification fires
// exactly when the transaction commits and in commit order.
func (r *AuctionRepository) Save(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `
        UPDATE auctions
        SET current_price = $2,
            state = $3,
            last_bidder_id = $4,
            last_bidder_contact = $5,
            winner_id = $6,
            winner_contact = $7,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := tx.QueryRow(ctx, query,
		a.ID,
		a.CurrentPrice,
		string(a.State),
		a.LastBidderID,
		a.LastBidderContact,
		a.WinnerID,
		a.WinnerContact,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAuctionNotFound
		}
		return err
	}

	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, a.ID.String())
	if err != nil {
		return fmt.Errorf("notify auction change: %w", err)
	}
	return nil
}

func (r *AuctionRepository) List(ctx context.Context, filter domain.ListFilter, userID string) ([]*domain.Auction, error) {
	base := `SELECT ` + auctionColumns + ` FROM auctions`
	order := ` ORDER BY created_at DESC`

	var rows pgx.Rows
	var err error
	switch filter {
	case domain.FilterAll:
		rows, err = r.pool.Query(ctx, base+order)
	case domain.FilterActive:
		rows, err = r.pool.Query(ctx, base+` WHERE state = $1`+order, string(domain.StateActive))
	case domain.FilterClosed:
		rows, err = r.pool.Query(ctx, base+` WHERE state = $1`+order, string(domain.StateClosed))
	case domain.FilterWonBy:
		rows, err = r.pool.Query(ctx, base+` WHERE winner_id = $1`+order, userID)
	default:
		return nil, fmt.Errorf("unknown list filter %q", filter)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	var state string
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.StartingPrice,
		&a.CurrentPrice,
		&state,
		&a.LastBidderID,
		&a.LastBidderContact,
		&a.WinnerID,
		&a.WinnerContact,
		&a.ImageURL,
		&a.ImagePath,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	a.State = domain.AuctionState(state)
	return a, nil
}
