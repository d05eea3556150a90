// Package factory constructs the persistence backend from configuration.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flagmap/flagmap/server/internal/config"
	"github.com/flagmap/flagmap/server/internal/store"
	"github.com/flagmap/flagmap/server/internal/store/postgres"
	"github.com/flagmap/flagmap/server/internal/store/sqlite"
)

// NewStore returns a store.Store for the configured driver.
func NewStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return st, nil
	case "postgres":
		st, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Msg("postgres store ready")
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}
