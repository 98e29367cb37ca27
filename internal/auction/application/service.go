package application

import (
	"context"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService is the application surface of the auction module, exposed
// to the transport layers (HTTP and websocket).
type AuctionService interface {
	CreateAuction(ctx context.Context, in CreateAuctionInput) (*domain.Auction, error)
	SubmitBid(ctx context.Context, in SubmitBidInput) (*domain.Auction, error)
	CloseAuction(ctx context.Context, auctionID uuid.UUID, requestedBy string) (*domain.Auction, error)
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error)
	ListAuctions(ctx context.Context, filter domain.ListFilter, userID string) ([]*domain.Auction, error)
	ComputeResults(ctx context.Context, auctionID uuid.UUID) (*Results, error)
}

type auctionService struct {
	createUC  *CreateAuctionUseCase
	submitUC  *SubmitBidUseCase
	closeUC   *CloseAuctionUseCase
	getUC     *GetAuctionUseCase
	listUC    *ListAuctionsUseCase
	resultsUC *ComputeResultsUseCase
}

func NewAuctionService(
	createUC *CreateAuctionUseCase,
	submitUC *SubmitBidUseCase,
	closeUC *CloseAuctionUseCase,
	getUC *GetAuctionUseCase,
	listUC *ListAuctionsUseCase,
	resultsUC *ComputeResultsUseCase,
) AuctionService {
	return &auctionService{
		createUC:  createUC,
		submitUC:  submitUC,
		closeUC:   closeUC,
		getUC:     getUC,
		listUC:    listUC,
		resultsUC: resultsUC,
	}
}

func (s *auctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (*domain.Auction, error) {
	return s.createUC.Execute(ctx, in)
}

func (s *auctionService) SubmitBid(ctx context.Context, in SubmitBidInput) (*domain.Auction, error) {
	return s.submitUC.Execute(ctx, in)
}

func (s *auctionService) CloseAuction(ctx context.Context, auctionID uuid.UUID, requestedBy string) (*domain.Auction, error) {
	return s.closeUC.Execute(ctx, auctionID, requestedBy)
}

func (s *auctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return s.getUC.Execute(ctx, auctionID)
}

func (s *auctionService) ListAuctions(ctx context.Context, filter domain.ListFilter, userID string) ([]*domain.Auction, error) {
	return s.listUC.Execute(ctx, filter, userID)
}

func (s *auctionService) ComputeResults(ctx context.Context, auctionID uuid.UUID) (*Results, error) {
	return s.resultsUC.Execute(ctx, auctionID)
}
