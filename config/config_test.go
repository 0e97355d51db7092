package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Relay.PendingTTL)
	assert.Equal(t, time.Hour, cfg.Relay.SweepInterval)
	assert.Equal(t, 100_000, cfg.Relay.DedupCapacity)
	assert.Equal(t, "gochannel", cfg.PubSub.Driver)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
relay:
  pending_ttl: 2h
  dedup_capacity: 10
log:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path, []string{"--relay.dedup_capacity=20"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Relay.PendingTTL)
	assert.Equal(t, 20, cfg.Relay.DedupCapacity, "flags win over the file")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("RELAY_SERVER_ADDR", ":7777")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	_, err := LoadConfig("", []string{"--pubsub.driver=kafka"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn"}}
	assert.Equal(t, "WARN", cfg.SlogLevel().String())

	cfg.Log.Level = "nonsense"
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}
