package application

import (
	"context"
	"sort"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/google/uuid"
)

// Results is the close-time report of a finished auction: the winner's
// contact, the distinct contacts of everyone else who bid, and the full
// chronological history, newest first.
type Results struct {
	WinnerContact  string
	LosingContacts []string
	History        []*domain.Bid
}

// ComputeResultsUseCase builds the results report for a closed auction.
// The bid log of a closed auction is frozen, so the report is idempotent.
type ComputeResultsUseCase struct {
	auctions domain.AuctionRepository
	bids     domain.BidRepository
}

func NewComputeResultsUseCase(auctions domain.AuctionRepository, bids domain.BidRepository) *ComputeResultsUseCase {
	return &ComputeResultsUseCase{auctions: auctions, bids: bids}
}

func (uc *ComputeResultsUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*Results, error) {
	a, err := uc.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.State != domain.StateClosed {
		return nil, domain.ErrNotClosed
	}

	bids, err := uc.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	// One pass over the log: distinct contacts minus the winner. The winner
	// may have placed earlier losing bids and must still not appear.
	contacts := make(map[string]struct{}, len(bids))
	for _, b := range bids {
		contacts[b.BidderContact] = struct{}{}
	}
	delete(contacts, a.WinnerContact)

	losers := make([]string, 0, len(contacts))
	for c := range contacts {
		losers = append(losers, c)
	}
	sort.Strings(losers)

	// ListByAuction returns ascending accepted_at; the report wants newest
	// first.
	history := make([]*domain.Bid, len(bids))
	for i, b := range bids {
		history[len(bids)-1-i] = b
	}

	return &Results{
		WinnerContact:  a.WinnerContact,
		LosingContacts: losers,
		History:        history,
	}, nil
}
