package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/astalive/astalive/internal/auction/application"
	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/astalive/astalive/internal/shared/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler consumes inbound hub messages for the auction module.
// Bids submitted over the websocket go through the same bid processor as
// REST bids; accepted bids reach subscribers through the change notifier,
// not from here.
type AuctionWSHandler struct {
	service application.AuctionService
	hub     *websocket.Hub
}

func NewAuctionWSHandler(service application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{service: service, hub: hub}
}

// ListenForMessages drains the hub's inbound channel until ctx is
// cancelled.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("auction websocket handler listening for inbound messages")
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendError(client, ErrCodeInvalid, "invalid message format", nil)
		return
	}
	switch base.Type {
	case MessageTypeClientBid:
		h.handleBid(ctx, client, data)
	default:
		h.sendError(client, ErrCodeInvalid, "unknown message type", nil)
	}
}

func (h *AuctionWSHandler) handleBid(ctx context.Context, client *websocket.Client, data []byte) {
	var msg ClientBidMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, ErrCodeInvalid, "invalid bid message format", nil)
		return
	}

	auctionID, err := uuid.Parse(client.AuctionID)
	if err != nil {
		h.sendError(client, ErrCodeInvalid, "invalid auction id", nil)
		return
	}

	_, err = h.service.SubmitBid(ctx, application.SubmitBidInput{
		AuctionID:     auctionID,
		BidderID:      client.UserID,
		BidderContact: client.UserContact,
		Amount:        msg.Payload.Amount,
	})
	if err != nil {
		var tooLow *domain.BidTooLowError
		switch {
		case errors.As(err, &tooLow):
			h.sendError(client, ErrCodeBidTooLow, tooLow.Error(), &tooLow.CurrentPrice)
		case errors.Is(err, domain.ErrAuctionClosed):
			h.sendError(client, ErrCodeAuctionClosed, err.Error(), nil)
		case errors.Is(err, domain.ErrAuctionNotFound):
			h.sendError(client, ErrCodeNotFound, err.Error(), nil)
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidBidder):
			h.sendError(client, ErrCodeInvalid, err.Error(), nil)
		default:
			log.Error("websocket bid failed",
				zap.String("auctionID", client.AuctionID),
				zap.String("userID", client.UserID),
				zap.Error(err),
			)
			h.sendError(client, ErrCodeUnavailable, "could not process bid, try again", nil)
		}
		return
	}
	// Accepted: the notifier observes the commit and pushes the new
	// snapshot to every subscriber of this auction, this client included.
}

func (h *AuctionWSHandler) sendError(client *websocket.Client, code, message string, currentPrice *decimal.Decimal) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Code = code
	errMsg.Payload.Error = message
	errMsg.Payload.CurrentPrice = currentPrice

	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal server error message", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send buffer full, error message dropped",
			zap.String("clientID", client.ID),
		)
	}
}
