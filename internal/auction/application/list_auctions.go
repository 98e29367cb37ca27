package application

import (
	"context"
	"fmt"

	"github.com/astalive/astalive/internal/auction/domain"
)

// ListAuctionsUseCase returns auctions matching a filter, newest creation
// first. The won filter is scoped to the calling user.
type ListAuctionsUseCase struct {
	auctions domain.AuctionRepository
}

func NewListAuctionsUseCase(auctions domain.AuctionRepository) *ListAuctionsUseCase {
	return &ListAuctionsUseCase{auctions: auctions}
}

func (uc *ListAuctionsUseCase) Execute(ctx context.Context, filter domain.ListFilter, userID string) ([]*domain.Auction, error) {
	switch filter {
	case domain.FilterAll, domain.FilterActive, domain.FilterClosed:
	case domain.FilterWonBy:
		if userID == "" {
			return nil, domain.ErrInvalidBidder
		}
	default:
		return nil, fmt.Errorf("unknown list filter %q", filter)
	}

	return uc.auctions.List(ctx, filter, userID)
}
