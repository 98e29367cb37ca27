package websocket

import (
	"time"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/shopspring/decimal"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	// MessageTypeClientBid is a bid submission from the subscriber.
	MessageTypeClientBid MessageType = "client_bid"
	// MessageTypeServerSnapshot carries the full current auction state,
	// sent on subscribe and after every committed change.
	MessageTypeServerSnapshot MessageType = "server_snapshot"
	// MessageTypeServerError reports a rejected operation to one client.
	MessageTypeServerError MessageType = "server_error"
)

// Error codes carried by server_error messages.
const (
	ErrCodeBidTooLow     = "bid_too_low"
	ErrCodeAuctionClosed = "auction_closed"
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalid       = "invalid"
	ErrCodeUnavailable   = "unavailable"
)

// BaseMessage is embedded by every websocket message.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is a bid from the connected subscriber. Identity comes
// from the authenticated connection, never from the payload.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// SnapshotPayload is the wire form of an auction snapshot.
type SnapshotPayload struct {
	AuctionID         string          `json:"auction_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	StartingPrice     decimal.Decimal `json:"starting_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	State             string          `json:"state"`
	LastBidderContact string          `json:"last_bidder_contact,omitempty"`
	WinnerContact     string          `json:"winner_contact,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ServerSnapshotMessage is a full auction snapshot pushed to subscribers.
type ServerSnapshotMessage struct {
	BaseMessage
	Payload SnapshotPayload `json:"payload"`
}

// ServerErrorMessage reports a rejection. CurrentPrice is set for
// bid_too_low so the client can retry with a corrected amount.
type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Code         string           `json:"code"`
		Error        string           `json:"error"`
		CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	} `json:"payload"`
}

// NewSnapshotMessage builds the snapshot message for one auction.
func NewSnapshotMessage(a *domain.Auction) ServerSnapshotMessage {
	return ServerSnapshotMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerSnapshot},
		Payload: SnapshotPayload{
			AuctionID:         a.ID.String(),
			Title:             a.Title,
			Description:       a.Description,
			StartingPrice:     a.StartingPrice,
			CurrentPrice:      a.CurrentPrice,
			State:             string(a.State),
			LastBidderContact: a.LastBidderContact,
			WinnerContact:     a.WinnerContact,
			ImageURL:          a.ImageURL,
			CreatedAt:         a.CreatedAt,
			UpdatedAt:         a.UpdatedAt,
		},
	}
}
