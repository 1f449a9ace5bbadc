package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgconfig "github.com/weiawesome/oidi-live/pkg/config"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	}
	v, err := pkgconfig.Load(dir, "config")
	require.NoError(t, err)
	cfg, err := load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, 8095, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, pubsub.DriverMemory, cfg.PubSub.Driver)
	assert.Equal(t, "localhost:9092", cfg.PubSub.Kafka.Brokers)
	assert.True(t, cfg.Camera.FlashUnit)
	assert.Equal(t, "info", cfg.Log.Level)

	sim := cfg.Simulator.SimulatorConfig()
	assert.Equal(t, 2*time.Second, sim.ViewerTick)
	assert.Equal(t, 500*time.Millisecond, sim.CommentDelayMin)
	assert.Equal(t, 3300*time.Millisecond, sim.JoinerLifetime)
	assert.Equal(t, 0.85, sim.LocalCommentRatio)
	assert.Equal(t, 10, sim.RosterSize)
	assert.Empty(t, sim.Pools.LocalUsernames)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("PUBSUB_DRIVER", "redis")

	cfg := loadFrom(t, `
server:
  shutdown_timeout: 3s
simulator:
  viewer_tick: 250ms
  local_join_ratio: 0.5
  pools:
    local_usernames: [amina, baraka]
    join_message: "karibu"
camera:
  flash_unit: false
log:
  level: debug
`)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, pubsub.DriverRedis, cfg.PubSub.Driver)
	assert.False(t, cfg.Camera.FlashUnit)
	assert.Equal(t, "debug", cfg.Log.Level)

	sim := cfg.Simulator.SimulatorConfig()
	assert.Equal(t, 250*time.Millisecond, sim.ViewerTick)
	assert.Equal(t, 0.5, sim.LocalJoinRatio)
	assert.Equal(t, []string{"amina", "baraka"}, sim.Pools.LocalUsernames)
	assert.Equal(t, "karibu", sim.Pools.JoinMessage)
}
