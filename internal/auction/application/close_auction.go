package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/shared/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CloseAuctionUseCase performs the terminal active -> closed transition,
// capturing the winner from the last bidder. The privilege decision is an
// injected capability; this use case never talks to the identity provider
// itself.
type CloseAuctionUseCase struct {
	runner       db.Runner
	auctions     domain.AuctionRepository
	isPrivileged func(userID string) bool
}

func NewCloseAuctionUseCase(runner db.Runner, auctions domain.AuctionRepository, isPrivileged func(string) bool) *CloseAuctionUseCase {
	return &CloseAuctionUseCase{
		runner:       runner,
		auctions:     auctions,
		isPrivileged: isPrivileged,
	}
}

// Execute closes the auction atomically. A concurrent second close observes
// the committed closed state under the row lock and gets ErrAlreadyClosed.
func (uc *CloseAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID, requestedBy string) (*domain.Auction, error) {
	if !uc.isPrivileged(requestedBy) {
		log.Warn("close rejected: caller not privileged",
			zap.String("auctionID", auctionID.String()),
			zap.String("requestedBy", requestedBy),
		)
		return nil, domain.ErrForbidden
	}

	var snapshot *domain.Auction
	err := uc.runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		a, err := uc.auctions.GetForUpdate(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if err := a.Close(); err != nil {
			return err
		}
		if err := uc.auctions.Save(ctx, tx, a); err != nil {
			return fmt.Errorf("save auction %s: %w", auctionID, err)
		}
		snapshot = a
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxRetriesExhausted) {
			return nil, domain.ErrUnavailable
		}
		return nil, err
	}

	log.Info("auction closed",
		zap.String("auctionID", auctionID.String()),
		zap.String("winnerID", snapshot.WinnerID),
		zap.String("finalPrice", snapshot.CurrentPrice.String()),
	)
	return snapshot, nil
}
