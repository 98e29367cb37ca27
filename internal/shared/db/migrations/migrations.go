package migrations

import (
	"github.com/astalive/astalive/internal/shared/config"
	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var log = logger.GetLogger()

// Run applies all pending SQL migrations. Called once at startup before the
// pool is handed to repositories.
func Run(cfg *config.Config) error {
	m, err := migrate.New(
		"file://internal/shared/db/migrations/sql",
		cfg.PostgresDSN(),
	)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	log.Info("database migrations applied")
	return nil
}
