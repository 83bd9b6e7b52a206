package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "factorio.zone", cfg.Host)
	assert.Empty(t, cfg.WSEndpoint)
	assert.Empty(t, cfg.APIEndpoint)
	assert.False(t, cfg.VerifyTLS)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Hour, cfg.StopTimeout)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, 10*time.Second, cfg.KeepaliveTimeout)
	assert.Equal(t, time.Second, cfg.SyncPoll)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
	assert.Equal(t, DefaultStorePath(), cfg.StorePath)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"FZ_HOST":               "staging.example",
		"FZ_WS_ENDPOINT":        "ws://localhost:9000/ws",
		"FZ_API_ENDPOINT":       "http://localhost:9000/api",
		"FZ_VERIFY_TLS":         "true",
		"FZ_REQUEST_TIMEOUT":    "5s",
		"FZ_STOP_TIMEOUT":       "10m",
		"FZ_KEEPALIVE_INTERVAL": "15s",
		"FZ_KEEPALIVE_TIMEOUT":  "3s",
		"FZ_SYNC_POLL":          "250ms",
		"FZ_STORE_PATH":         "/tmp/fz/config.yaml",
		"FZ_LOG_LEVEL":          "debug",
		"FZ_LOG_DEVELOPMENT":    "true",
		"FZ_LOG_FILE":           "/tmp/fz/fzm.log",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging.example", cfg.Host)
	assert.Equal(t, "ws://localhost:9000/ws", cfg.WSEndpoint)
	assert.Equal(t, "http://localhost:9000/api", cfg.APIEndpoint)
	assert.True(t, cfg.VerifyTLS)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.StopTimeout)
	assert.Equal(t, 15*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, 3*time.Second, cfg.KeepaliveTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncPoll)
	assert.Equal(t, "/tmp/fz/config.yaml", cfg.StorePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "/tmp/fz/fzm.log", cfg.Log.File)
}

func TestLoadIgnoresUnprefixedHost(t *testing.T) {
	t.Setenv("HOST", "build-runner-42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "factorio.zone", cfg.Host)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("FZ_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
