package http

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/astalive/astalive/internal/auction/application"
	"github.com/astalive/astalive/internal/auction/domain"
	wsmsg "github.com/astalive/astalive/internal/auction/infra/websocket"
	"github.com/astalive/astalive/internal/blobstore"
	"github.com/astalive/astalive/internal/identity"
	"github.com/astalive/astalive/internal/shared/logger"
	ws "github.com/astalive/astalive/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Handler wires the auction module's operations onto the fiber app:
// the REST surface, the image passthrough to the blob store and the
// websocket subscription endpoint.
type Handler struct {
	service application.AuctionService
	ids     identity.Provider
	blobs   blobstore.Store
	hub     *ws.Hub
}

func NewHandler(service application.AuctionService, ids identity.Provider, blobs blobstore.Store, hub *ws.Hub) *Handler {
	return &Handler{service: service, ids: ids, blobs: blobs, hub: hub}
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/auctions", h.createAuction)
	api.Get("/auctions", h.listAuctions)
	api.Get("/auctions/:id", h.getAuction)
	api.Post("/auctions/:id/bids", h.submitBid)
	api.Post("/auctions/:id/close", h.closeAuction)
	api.Get("/auctions/:id/results", h.computeResults)
	api.Post("/images", h.uploadImage)
	api.Delete("/images", h.deleteImage)

	app.Use("/ws/auctions/:id", h.upgradeMiddleware)
	app.Get("/ws/auctions/:id", websocket.New(h.subscribe))
}

type createAuctionRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	ImageURL      string          `json:"image_url"`
	ImagePath     string          `json:"image_path"`
}

type bidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type deleteImageRequest struct {
	Path string `json:"path"`
}

type auctionResponse struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	StartingPrice     decimal.Decimal `json:"starting_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	State             string          `json:"state"`
	LastBidderContact string          `json:"last_bidder_contact,omitempty"`
	WinnerContact     string          `json:"winner_contact,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type bidResponse struct {
	BidderContact string          `json:"bidder_contact"`
	Amount        decimal.Decimal `json:"amount"`
	AcceptedAt    string          `json:"accepted_at"`
}

// headerGetter adapts fiber's variadic header accessor to the identity
// provider's lookup signature.
func headerGetter(c *fiber.Ctx) func(string) string {
	return func(key string) string { return c.Get(key) }
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	return auctionResponse{
		ID:                a.ID.String(),
		Title:             a.Title,
		Description:       a.Description,
		StartingPrice:     a.StartingPrice,
		CurrentPrice:      a.CurrentPrice,
		State:             string(a.State),
		LastBidderContact: a.LastBidderContact,
		WinnerContact:     a.WinnerContact,
		ImageURL:          a.ImageURL,
		CreatedBy:         a.CreatedBy,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) createAuction(c *fiber.Ctx) error {
	user, err := h.ids.Caller(headerGetter(c))
	if err != nil {
		return writeError(c, err)
	}

	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	a, err := h.service.CreateAuction(c.Context(), application.CreateAuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		CreatorID:     user.ID,
		ImageURL:      req.ImageURL,
		ImagePath:     req.ImagePath,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAuctionResponse(a))
}

func (h *Handler) listAuctions(c *fiber.Ctx) error {
	filter := domain.ListFilter(c.Query("filter", string(domain.FilterActive)))

	var userID string
	if user, err := h.ids.Caller(headerGetter(c)); err == nil {
		userID = user.ID
	}
	if filter == domain.FilterWonBy && userID == "" {
		return writeError(c, identity.ErrUnauthenticated)
	}

	auctions, err := h.service.ListAuctions(c.Context(), filter, userID)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]auctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, toAuctionResponse(a))
	}
	return c.JSON(out)
}

func (h *Handler) getAuction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, domain.ErrAuctionNotFound)
	}
	a, err := h.service.GetAuction(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAuctionResponse(a))
}

func (h *Handler) submitBid(c *fiber.Ctx) error {
	user, err := h.ids.Caller(headerGetter(c))
	if err != nil {
		return writeError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, domain.ErrAuctionNotFound)
	}

	var req bidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	a, err := h.service.SubmitBid(c.Context(), application.SubmitBidInput{
		AuctionID:     id,
		BidderID:      user.ID,
		BidderContact: user.Contact,
		Amount:        req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAuctionResponse(a))
}

func (h *Handler) closeAuction(c *fiber.Ctx) error {
	user, err := h.ids.Caller(headerGetter(c))
	if err != nil {
		return writeError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, domain.ErrAuctionNotFound)
	}

	a, err := h.service.CloseAuction(c.Context(), id, user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAuctionResponse(a))
}

func (h *Handler) computeResults(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, domain.ErrAuctionNotFound)
	}

	results, err := h.service.ComputeResults(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	history := make([]bidResponse, 0, len(results.History))
	for _, b := range results.History {
		history = append(history, bidResponse{
			BidderContact: b.BidderContact,
			Amount:        b.Amount,
			AcceptedAt:    b.AcceptedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"winner_contact":  results.WinnerContact,
		"losing_contacts": results.LosingContacts,
		"history":         history,
	})
}

func (h *Handler) uploadImage(c *fiber.Ctx) error {
	user, err := h.ids.Caller(headerGetter(c))
	if err != nil {
		return writeError(c, err)
	}
	if !h.ids.IsPrivileged(user.ID) {
		return writeError(c, domain.ErrForbidden)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file"})
	}
	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable file"})
	}
	defer f.Close()

	obj, err := h.blobs.Upload(c.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), f)
	if err != nil {
		log.Error("image upload failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "image upload failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

func (h *Handler) deleteImage(c *fiber.Ctx) error {
	user, err := h.ids.Caller(headerGetter(c))
	if err != nil {
		return writeError(c, err)
	}
	if !h.ids.IsPrivileged(user.ID) {
		return writeError(c, domain.ErrForbidden)
	}

	var req deleteImageRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing path"})
	}

	if err := h.blobs.Delete(c.Context(), req.Path); err != nil {
		log.Error("image delete failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "image delete failed"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// upgradeMiddleware resolves identity before the connection is hijacked.
// Anonymous observers may subscribe; only bidding needs an identity.
func (h *Handler) upgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if user, err := h.ids.Caller(headerGetter(c)); err == nil {
		c.Locals("userID", user.ID)
		c.Locals("userContact", user.Contact)
	}
	c.Locals("auctionID", c.Params("id"))
	return c.Next()
}

// subscribe serves one live subscription: current snapshot immediately,
// then every committed change until the peer disconnects.
func (h *Handler) subscribe(conn *websocket.Conn) {
	auctionIDStr, _ := conn.Locals("auctionID").(string)
	userID, _ := conn.Locals("userID").(string)
	userContact, _ := conn.Locals("userContact").(string)

	ctx := context.Background()

	auctionID, err := uuid.Parse(auctionIDStr)
	if err != nil {
		writeSubscribeError(conn, wsmsg.ErrCodeNotFound, "invalid auction id")
		_ = conn.Close()
		return
	}

	// Register before the snapshot read: any commit is then either visible
	// to the read or broadcast to this client afterwards, so the observer
	// never starts out behind the last committed state.
	client := ws.NewClient(h.hub, conn, auctionIDStr, userID, userContact)
	h.hub.RegisterClient(client)

	a, err := h.service.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			writeSubscribeError(conn, wsmsg.ErrCodeNotFound, "auction not found")
		} else {
			writeSubscribeError(conn, wsmsg.ErrCodeUnavailable, "could not load auction")
		}
		h.hub.UnregisterClient(client)
		_ = conn.Close()
		return
	}

	if data, err := json.Marshal(wsmsg.NewSnapshotMessage(a)); err == nil {
		// Through the hub loop, versioned: if a newer snapshot was already
		// broadcast to this client, this older read is suppressed.
		h.hub.SendToClient(client, a.UpdatedAt.UnixNano(), data)
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func writeSubscribeError(conn *websocket.Conn, code, message string) {
	errMsg := wsmsg.ServerErrorMessage{BaseMessage: wsmsg.BaseMessage{Type: wsmsg.MessageTypeServerError}}
	errMsg.Payload.Code = code
	errMsg.Payload.Error = message
	if data, err := json.Marshal(errMsg); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// writeError maps domain errors onto HTTP statuses. Every rejection names
// its reason; bid_too_low additionally carries the price to beat.
func writeError(c *fiber.Ctx, err error) error {
	var tooLow *domain.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":          "bid_too_low",
			"error":         tooLow.Error(),
			"current_price": tooLow.CurrentPrice,
		})
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": "not_found", "error": err.Error()})
	case errors.Is(err, domain.ErrAuctionClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"code": "auction_closed", "error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"code": "already_closed", "error": err.Error()})
	case errors.Is(err, domain.ErrNotClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"code": "not_closed", "error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"code": "forbidden", "error": err.Error()})
	case errors.Is(err, identity.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"code": "unauthenticated", "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidBidder):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": "invalid", "error": err.Error()})
	case errors.Is(err, domain.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"code": "unavailable", "error": err.Error()})
	default:
		log.Error("unhandled error in HTTP handler", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"code": "internal", "error": "internal server error"})
	}
}
