package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 50, cfg.RateLimit.DefaultPerSecond)
	assert.Equal(t, 2000, cfg.RateLimit.DefaultPerMinute)
	assert.Equal(t, 250, cfg.RateLimit.StoreTimeoutMs)
	assert.Equal(t, 200, cfg.Warmup.StartVolume)
	assert.Equal(t, 100_000, cfg.Warmup.MaxDailyVolume)
	assert.Equal(t, 1.5, cfg.Warmup.DailyIncrease)
	assert.Equal(t, 30, cfg.Warmup.MaxDays)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
}

func TestLoadParsesDomainTiers(t *testing.T) {
	path := writeConfig(t, `
ratelimit:
  default_per_second: 25
  domains:
    gmail.com:
      per_second: 8
      per_minute: 480
    example.org:
      per_second: 2
      per_minute: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.RateLimit.DefaultPerSecond)
	assert.Equal(t, DomainLimit{PerSecond: 8, PerMinute: 480}, cfg.RateLimit.Domains["gmail.com"])
	assert.Equal(t, DomainLimit{PerSecond: 2, PerMinute: 100}, cfg.RateLimit.Domains["example.org"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://file/db
redis:
  addr: file:6379
`)

	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("PORT", "7070")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFromEnvKeepsFileValues(t *testing.T) {
	path := writeConfig(t, "database:\n  url: postgres://file/db\n")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/db", cfg.Database.URL)
}
