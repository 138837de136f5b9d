package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "secret")

	raw := `
server:
  port: 9090
postgres:
  host: db.internal
  user: game
  password: ${TEST_PG_PASSWORD}
session:
  backend: redis
  ttl: 30m
rate_limit:
  limit: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5, cfg.RateLimit.Limit)

	// Unset values fall back to defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 85, cfg.Game.MatchThreshold)
	assert.Equal(t, 70, cfg.Game.LookupThreshold)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, 100, cfg.Game.DefaultPoolSize)
	assert.Equal(t, 1000, cfg.Game.MaxPoolSize)
	assert.Equal(t, "transfer-records", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "game",
		Password: "pw",
		Database: "transfermarkt",
	}
	assert.Equal(t,
		"postgres://game:pw@localhost:5432/transfermarkt?sslmode=disable",
		cfg.ConnectionString(),
	)
}
