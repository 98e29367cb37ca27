package main

import (
	"context"

	"github.com/astalive/astalive/internal/auction/application"
	auctionhttp "github.com/astalive/astalive/internal/auction/infra/http"
	"github.com/astalive/astalive/internal/auction/infra/repository/postgres"
	auctionws "github.com/astalive/astalive/internal/auction/infra/websocket"
	"github.com/astalive/astalive/internal/blobstore"
	"github.com/astalive/astalive/internal/identity"
	"github.com/astalive/astalive/internal/notifier"
	"github.com/astalive/astalive/internal/shared/config"
	"github.com/astalive/astalive/internal/shared/db"
	"github.com/astalive/astalive/internal/shared/db/migrations"
	"github.com/astalive/astalive/internal/shared/httpserver"
	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/astalive/astalive/internal/shared/websocket"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	cfg := config.Load()

	log.Info("running database migrations")
	if err := migrations.Run(cfg); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// Repositories and the bounded-retry transaction runner.
	auctionRepo := postgres.NewAuctionRepository(pool)
	bidRepo := postgres.NewBidRepository(pool)
	runner := db.NewPoolRunner(pool, cfg.MaxTxAttempts)

	// External collaborators.
	ids := identity.NewHeaderProvider(cfg.AdminUserID)
	blobs := blobstore.NewHTTPStore(cfg.BlobStoreURL, cfg.BlobStoreToken)

	// Application services.
	service := application.NewAuctionService(
		application.NewCreateAuctionUseCase(auctionRepo, ids.IsPrivileged),
		application.NewSubmitBidUseCase(runner, auctionRepo, bidRepo),
		application.NewCloseAuctionUseCase(runner, auctionRepo, ids.IsPrivileged),
		application.NewGetAuctionUseCase(auctionRepo),
		application.NewListAuctionsUseCase(auctionRepo),
		application.NewComputeResultsUseCase(auctionRepo, bidRepo),
	)

	// Live delivery: hub fan-out, websocket bid handling, change notifier.
	hub := websocket.NewHub()
	go hub.Run(ctx)

	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	go wsHandler.ListenForMessages(ctx)

	changes := notifier.New(pool, hub, auctionRepo)
	go changes.Run(ctx)

	// HTTP transport.
	server := httpserver.NewServer()
	auctionhttp.NewHandler(service, ids, blobs, hub).Register(server.App())

	if err := server.Start(cfg.HTTPAddr, cancel); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
