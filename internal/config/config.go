// Package config loads runtime settings from the environment and persists
// the user's defaults between runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const appDirName = "fz-manager"

// Config holds all runtime configuration, read from FZ_* environment
// variables (FZ_HOST, FZ_REQUEST_TIMEOUT, FZ_LOG_LEVEL and so on). Leaf fields
// must not carry envconfig name tags: envconfig falls back to the bare tag
// name, which would pick up HOST from the shell.
type Config struct {
	ServiceConfig
	Log LogConfig `envconfig:"LOG"`

	// StorePath is the yaml file holding persisted defaults. Empty means
	// the user config directory.
	StorePath string `split_words:"true"`
}

// ServiceConfig locates the hosting service and tunes the connection.
type ServiceConfig struct {
	Host              string        `default:"factorio.zone"`
	WSEndpoint        string        `split_words:"true"`
	APIEndpoint       string        `split_words:"true"`
	VerifyTLS         bool          `split_words:"true" default:"false"`
	RequestTimeout    time.Duration `split_words:"true" default:"30s"`
	StopTimeout       time.Duration `split_words:"true" default:"1h"`
	KeepaliveInterval time.Duration `split_words:"true" default:"30s"`
	KeepaliveTimeout  time.Duration `split_words:"true" default:"10s"`
	SyncPoll          time.Duration `split_words:"true" default:"1s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `default:"info"`
	Development bool   `default:"false"`
	// File receives log output. The terminal UI owns stdout, so interactive
	// runs should always log to a file.
	File string
}

// Load reads configuration from FZ_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("fz", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath()
	}
	return &cfg, nil
}

// DefaultStorePath returns <user config dir>/fz-manager/config.yaml.
func DefaultStorePath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, appDirName, "config.yaml")
}
