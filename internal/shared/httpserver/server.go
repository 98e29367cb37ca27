package httpserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Server wraps the fiber app with logging middleware, a health endpoint
// and signal-driven graceful shutdown.
type Server struct {
	app *fiber.App
}

func NewServer() *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
		)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	return &Server{app: app}
}

// App exposes the underlying fiber app for route registration.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on addr and blocks until the listener stops. A SIGINT or
// SIGTERM triggers a graceful shutdown and cancels onShutdown.
func (s *Server) Start(addr string, onShutdown context.CancelFunc) error {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("shutting down HTTP server")
		onShutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(ctx)
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
