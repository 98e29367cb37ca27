// Package notifier is the change notifier: it observes committed auction
// mutations through the store's notification channel and fans the latest
// snapshot out to every live subscriber of that auction.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/auction/infra/repository/postgres"
	wsmsg "github.com/astalive/astalive/internal/auction/infra/websocket"
	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/astalive/astalive/internal/shared/websocket"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const reconnectDelay = time.Second

// Notifier LISTENs on the auction notify channel with a dedicated pooled
// connection. The write path fires pg_notify inside the mutating
// transaction, so notifications arrive exactly at commit time and in
// commit order; processing them on a single goroutine preserves that order
// through to the hub. Because each notification triggers a fresh read of
// the current row, bursts naturally coalesce to the latest committed
// snapshot.
type Notifier struct {
	pool     *pgxpool.Pool
	hub      *websocket.Hub
	auctions domain.AuctionRepository
}

func New(pool *pgxpool.Pool, hub *websocket.Hub, auctions domain.AuctionRepository) *Notifier {
	return &Notifier{pool: pool, hub: hub, auctions: auctions}
}

// Run blocks until ctx is cancelled, reconnecting the listening connection
// on failure so subscribers do not silently freeze on stale data.
func (n *Notifier) Run(ctx context.Context) {
	log.Info("change notifier started", zap.String("channel", postgres.NotifyChannel))
	for {
		if err := n.listen(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info("change notifier stopped")
				return
			}
			log.Error("change notifier connection lost, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

func (n *Notifier) listen(ctx context.Context) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+postgres.NotifyChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		n.publish(ctx, notification.Payload)
	}
}

func (n *Notifier) publish(ctx context.Context, payload string) {
	auctionID, err := uuid.Parse(payload)
	if err != nil {
		log.Warn("ignoring notification with malformed payload", zap.String("payload", payload))
		return
	}

	a, err := n.auctions.GetByID(ctx, auctionID)
	if err != nil {
		log.Error("failed to load auction for notification",
			zap.String("auctionID", payload),
			zap.Error(err),
		)
		return
	}

	data, err := json.Marshal(wsmsg.NewSnapshotMessage(a))
	if err != nil {
		log.Error("failed to marshal auction snapshot", zap.Error(err))
		return
	}
	n.hub.BroadcastToAuction(a.ID.String(), a.UpdatedAt.UnixNano(), data)
}
