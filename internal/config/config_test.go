package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, "./data/flagmap.db", cfg.SQLitePath)
	require.Equal(t, "*", cfg.AllowedOrigin)
	require.Equal(t, 64, cfg.SendBuffer)
	require.Equal(t, 5, cfg.HealthIntervalSeconds)
	require.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLAGMAP_HTTP_PORT", "9090")
	t.Setenv("FLAGMAP_ALLOWED_ORIGIN", "https://ctf.example.org")
	t.Setenv("FLAGMAP_SQLITE_PATH", "/tmp/custom.db")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.HTTPPort)
	require.Equal(t, "https://ctf.example.org", cfg.AllowedOrigin)
	require.Equal(t, "/tmp/custom.db", cfg.SQLitePath)
}

func TestAutoDriverPrefersPostgresWhenDSNSet(t *testing.T) {
	t.Setenv("FLAGMAP_POSTGRES_DSN", "postgres://localhost:5432/flagmap")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.DBDriver)
}

func TestPostgresDriverRequiresDSN(t *testing.T) {
	t.Setenv("FLAGMAP_DB_DRIVER", "postgres")

	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestUnsupportedDriverRejected(t *testing.T) {
	t.Setenv("FLAGMAP_DB_DRIVER", "oracle")

	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestResolveDefaultsFixesSendBuffer(t *testing.T) {
	cfg := &Config{DBDriver: "sqlite", SQLitePath: ":memory:", SendBuffer: -1}
	require.NoError(t, cfg.ResolveDefaults())
	require.Equal(t, 64, cfg.SendBuffer)
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, ":memory:", cfg.SQLitePath)
	require.NotEmpty(t, cfg.SessionSecret)
	require.NoError(t, cfg.ResolveDefaults())
}
