package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/shared/db"
	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// SubmitBidInput carries everything needed to attempt a bid.
type SubmitBidInput struct {
	AuctionID     uuid.UUID
	BidderID      string
	BidderContact string
	Amount        decimal.Decimal
}

// SubmitBidUseCase is the bid processor: it validates a bid against the
// transactionally-read auction row and, when accepted, raises the price and
// appends the bid record inside one atomic transaction. The runner retries
// transient store conflicts with a fresh read each attempt, so a rejection
// for BidTooLow is always judged against the latest committed price.
type SubmitBidUseCase struct {
	runner   db.Runner
	auctions domain.AuctionRepository
	bids     domain.BidRepository
	now      func() time.Time
}

func NewSubmitBidUseCase(runner db.Runner, auctions domain.AuctionRepository, bids domain.BidRepository) *SubmitBidUseCase {
	return &SubmitBidUseCase{
		runner:   runner,
		auctions: auctions,
		bids:     bids,
		now:      time.Now,
	}
}

// Execute runs one bid attempt to completion and returns the committed
// auction snapshot on acceptance. It performs no side effect beyond the
// single transaction; observers learn about the commit through the change
// notifier, not from here.
func (uc *SubmitBidUseCase) Execute(ctx context.Context, in SubmitBidInput) (*domain.Auction, error) {
	var snapshot *domain.Auction

	err := uc.runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		a, err := uc.auctions.GetForUpdate(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}

		bid, err := a.AcceptBid(in.BidderID, in.BidderContact, in.Amount, uc.now().UTC())
		if err != nil {
			return err
		}

		if err := uc.bids.Append(ctx, tx, bid); err != nil {
			return fmt.Errorf("append bid for auction %s: %w", in.AuctionID, err)
		}
		if err := uc.auctions.Save(ctx, tx, a); err != nil {
			return fmt.Errorf("save auction %s: %w", in.AuctionID, err)
		}

		snapshot = a
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxRetriesExhausted) {
			log.Error("bid transaction exhausted its retry budget",
				zap.String("auctionID", in.AuctionID.String()),
				zap.String("bidderID", in.BidderID),
				zap.Error(err),
			)
			return nil, domain.ErrUnavailable
		}
		return nil, err
	}

	log.Info("bid accepted",
		zap.String("auctionID", in.AuctionID.String()),
		zap.String("bidderID", in.BidderID),
		zap.String("amount", in.Amount.String()),
	)
	return snapshot, nil
}
