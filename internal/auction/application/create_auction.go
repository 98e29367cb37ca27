package application

import (
	"context"
	"fmt"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionInput carries the fields of a new listing. Image fields are
// opaque references returned by the blob store collaborator.
type CreateAuctionInput struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	CreatorID     string
	ImageURL      string
	ImagePath     string
}

// CreateAuctionUseCase creates a new active auction. Privileged only.
type CreateAuctionUseCase struct {
	auctions     domain.AuctionRepository
	isPrivileged func(userID string) bool
}

func NewCreateAuctionUseCase(auctions domain.AuctionRepository, isPrivileged func(string) bool) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{
		auctions:     auctions,
		isPrivileged: isPrivileged,
	}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, in CreateAuctionInput) (*domain.Auction, error) {
	if !uc.isPrivileged(in.CreatorID) {
		return nil, domain.ErrForbidden
	}

	a, err := domain.NewAuction(in.Title, in.Description, in.StartingPrice, in.CreatorID, in.ImageURL, in.ImagePath)
	if err != nil {
		return nil, err
	}

	if err := uc.auctions.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	log.Info("auction created",
		zap.String("auctionID", a.ID.String()),
		zap.String("title", a.Title),
		zap.String("startingPrice", a.StartingPrice.String()),
	)
	return a, nil
}
