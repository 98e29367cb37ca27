package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Per-client outbound buffer. A client that cannot drain it is
	// disconnected rather than allowed to stall delivery to others.
	sendBufferSize = 16
)

// Hub tracks live subscribers grouped by auction id and fans committed
// auction snapshots out to them. All bookkeeping happens on a single
// goroutine driven by Run, so no map access needs locking. Versioned
// messages are delivered to each client in non-decreasing version order;
// a client never sees its auction's state roll backwards.
type Hub struct {
	subscribers map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan *directSend

	// overflow keeps the newest undelivered message per auction when the
	// broadcast channel is full. Coalescing to the latest snapshot is fine;
	// dropping the last one would leave subscribers on a stale final state.
	overflowMu   sync.Mutex
	overflow     map[string]*Message
	overflowKick chan struct{}

	// InboundMessages carries messages read from clients to the module
	// handler (bid submissions arrive here).
	InboundMessages chan *ClientMessage
}

// Client is one live websocket subscription to a single auction.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Send buffers outbound snapshots. Closed by the hub on unregister.
	Send chan []byte

	AuctionID string
	ID        string

	// UserID and UserContact carry the authenticated identity resolved at
	// upgrade time, so inbound bid messages need no credentials of their
	// own.
	UserID      string
	UserContact string

	// lastVersion is the highest snapshot version queued to this client.
	// Touched only by the hub goroutine.
	lastVersion int64
}

// Message is an outbound payload addressed to all subscribers of one
// auction. Version orders snapshots of the auction (updated_at as unix
// nanoseconds); zero means unversioned, which is always delivered.
type Message struct {
	AuctionID string
	Version   int64
	Data      []byte
}

// directSend targets a message at a single subscriber through the hub
// loop, so it observes the same per-client ordering as broadcasts.
type directSend struct {
	client  *Client
	message *Message
}

// ClientMessage wraps an inbound payload with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

// NewClient builds a subscription for one connection with a buffered send
// channel and a fresh subscription id.
func NewClient(hub *Hub, conn *websocket.Conn, auctionID, userID, userContact string) *Client {
	return &Client{
		Hub:         hub,
		Conn:        conn,
		Send:        make(chan []byte, sendBufferSize),
		AuctionID:   auctionID,
		ID:          uuid.NewString(),
		UserID:      userID,
		UserContact: userContact,
	}
}

func NewHub() *Hub {
	return &Hub{
		subscribers:     make(map[string]map[*Client]bool),
		register:        make(chan *Client, 64),
		unregister:      make(chan *Client, 64),
		broadcast:       make(chan *Message, 256),
		direct:          make(chan *directSend, 64),
		overflow:        make(map[string]*Message),
		overflowKick:    make(chan struct{}, 1),
		InboundMessages: make(chan *ClientMessage, 256),
	}
}

// Run drives the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("websocket hub shutting down")
			for _, clients := range h.subscribers {
				for client := range clients {
					close(client.Send)
				}
			}
			return

		case client := <-h.register:
			if _, ok := h.subscribers[client.AuctionID]; !ok {
				h.subscribers[client.AuctionID] = make(map[*Client]bool)
			}
			h.subscribers[client.AuctionID][client] = true
			log.Info("subscriber registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
				zap.Int("auctionSubscribers", len(h.subscribers[client.AuctionID])),
			)

		case client := <-h.unregister:
			if clients, ok := h.subscribers[client.AuctionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.subscribers, client.AuctionID)
					}
					log.Info("subscriber unregistered",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
				}
			}

		case message := <-h.broadcast:
			h.fanOut(message)
			h.drainOverflow()

		case d := <-h.direct:
			if clients, ok := h.subscribers[d.client.AuctionID]; ok && clients[d.client] {
				h.deliver(d.client, d.message)
			}

		case <-h.overflowKick:
			h.drainOverflow()
		}
	}
}

func (h *Hub) fanOut(message *Message) {
	clients := h.subscribers[message.AuctionID]
	for client := range clients {
		h.deliver(client, message)
	}
	if len(clients) == 0 {
		delete(h.subscribers, message.AuctionID)
	}
}

func (h *Hub) deliver(client *Client, message *Message) {
	if message.Version != 0 && message.Version < client.lastVersion {
		// A newer snapshot of this auction is already queued to the
		// client; delivering this one would roll its view backwards.
		return
	}
	if message.Version > client.lastVersion {
		client.lastVersion = message.Version
	}
	select {
	case client.Send <- message.Data:
	default:
		// Client is not draining its buffer; drop it so one stalled
		// connection cannot hold up the rest.
		if clients, ok := h.subscribers[client.AuctionID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscribers, client.AuctionID)
			}
		}
		close(client.Send)
		log.Warn("dropping stalled subscriber",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

func (h *Hub) drainOverflow() {
	h.overflowMu.Lock()
	if len(h.overflow) == 0 {
		h.overflowMu.Unlock()
		return
	}
	pending := h.overflow
	h.overflow = make(map[string]*Message)
	h.overflowMu.Unlock()

	for _, message := range pending {
		h.fanOut(message)
	}
}

// RegisterClient queues a new subscriber.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient queues removal of a subscriber. Safe to call more than
// once; only the first removal closes the send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToAuction sends data to every subscriber of auctionID. Messages
// for one auction are delivered in the order they are broadcast; under
// pressure deliveries may coalesce to the newest version, never to an
// older one.
func (h *Hub) BroadcastToAuction(auctionID string, version int64, data []byte) {
	message := &Message{AuctionID: auctionID, Version: version, Data: data}
	select {
	case h.broadcast <- message:
		return
	default:
	}

	h.overflowMu.Lock()
	if cur, ok := h.overflow[auctionID]; !ok || version >= cur.Version {
		h.overflow[auctionID] = message
	}
	h.overflowMu.Unlock()

	select {
	case h.overflowKick <- struct{}{}:
	default:
	}
}

// SendToClient queues data for one subscriber. It runs through the hub
// loop, so the version check applies exactly as it does for broadcasts: a
// newer snapshot already queued wins over this one.
func (h *Hub) SendToClient(client *Client, version int64, data []byte) {
	d := &directSend{
		client:  client,
		message: &Message{AuctionID: client.AuctionID, Version: version, Data: data},
	}
	select {
	case h.direct <- d:
	default:
		log.Error("direct channel full, message dropped", zap.String("clientID", client.ID))
	}
}

// ReadPump reads messages from the peer and forwards them to the hub's
// inbound channel. Runs as one goroutine per connection; returning
// unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("inbound channel full, dropping client message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump writes queued messages to the peer and keeps the connection
// alive with pings. Runs as one goroutine per connection; it is the only
// writer to the connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("websocket write error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
