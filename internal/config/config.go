package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the presence service.
// Environment variables are parsed from the FLAGMAP_ prefix, e.g.
// FLAGMAP_HTTP_PORT, FLAGMAP_DB_DRIVER.
type Config struct {
	// DBDriver selects the store backend: sqlite (default) or postgres.
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:""`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SessionSecret signs/verifies the platform session cookie (HS256).
	SessionSecret string `envconfig:"SESSION_SECRET" default:""`

	// Websocket Configuration
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"*"`
	SendBuffer    int    `envconfig:"SEND_BUFFER" default:"64"`

	// Health Configuration. Startup blocks until the store reports healthy,
	// which also waits out a concurrent data import running against the
	// shared database.
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"5"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates DBDriver and derives the sqlite path when unset.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.DBDriver == "sqlite" && c.SQLitePath == "" {
		c.SQLitePath = "./data/flagmap.db"
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return nil
}

// New creates a new Config by parsing environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("FLAGMAP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("allowed_origin", cfg.AllowedOrigin).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for tests: in-memory sqlite,
// short health cadence, a fixed session secret.
func NewForTesting() *Config {
	return &Config{
		DBDriver:                  "sqlite",
		HTTPPort:                  8080,
		SQLitePath:                ":memory:",
		SessionSecret:             "test-secret",
		AllowedOrigin:             "*",
		SendBuffer:                16,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
	}
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
