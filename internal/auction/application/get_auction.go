package application

import (
	"context"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/google/uuid"
)

// GetAuctionUseCase reads the current committed snapshot of one auction.
// Used for the REST read and for the initial state pushed to a new
// subscriber.
type GetAuctionUseCase struct {
	auctions domain.AuctionRepository
}

func NewGetAuctionUseCase(auctions domain.AuctionRepository) *GetAuctionUseCase {
	return &GetAuctionUseCase{auctions: auctions}
}

func (uc *GetAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return uc.auctions.GetByID(ctx, auctionID)
}
