package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, "postgres", cfg.Storage.Kind)
	assert.Equal(t, 24*time.Hour, cfg.Cache.GetRateTTL())
	assert.Equal(t, 48*time.Hour, cfg.Cache.GetCleanupInterval())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("WEALTHFLOW_PORT", "9090")
	t.Setenv("WEALTHFLOW_DEFAULT_CURRENCY", "usd")
	t.Setenv("WEALTHFLOW_STORAGE", "MEMORY")
	t.Setenv("WEALTHFLOW_WORKERS", "3")
	t.Setenv("WEALTHFLOW_SEED_FILE", "fixtures/demo.toml")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, "memory", cfg.Storage.Kind)
	assert.Equal(t, "fixtures/demo.toml", cfg.Storage.SeedFile)
	assert.Equal(t, 3, cfg.Portfolio.Workers)
	assert.Equal(t, "host=db port=6543 user=postgres password=postgres dbname=wealthflow sslmode=disable", cfg.Database.ConnectionString())
}

func TestConfig_ConnStrWins(t *testing.T) {
	t.Setenv("DB_CONN_STR", "postgres://u:p@h/db")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "postgres://u:p@h/db", cfg.Database.ConnectionString())
}

func TestLoadConfig_FilesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
default_currency = "USD"

[server]
port = 7000

[portfolio]
workers = 4
`), 0o600))
	require.NoError(t, os.WriteFile(local, []byte(`
[server]
port = 7001

[cache]
rate_ttl = "1h"
`), 0o600))

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Portfolio.Workers)
	assert.Equal(t, time.Hour, cfg.Cache.GetRateTTL())
}

func TestLoadConfig_RejectsUnknownCurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`default_currency = "ZZZ"`), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCurrency))
}

func TestConfig_ValidateStorageKind(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Kind = "surreal"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Kind = "memory"
	cfg.Portfolio.Workers = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Portfolio.Workers)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, "shown")
}

func TestNewSilentLogger(t *testing.T) {
	logger := NewSilentLogger()
	assert.NotPanics(t, func() { logger.Error().Msg("discarded") })
}
