package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults are the choices remembered between runs. UserToken identifies
// the account to the service; the rest pre-fill the start form.
type Defaults struct {
	UserToken string `yaml:"userToken,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Version   string `yaml:"version,omitempty"`
	Slot      string `yaml:"slot,omitempty"`

	// Stored inverted so a fresh config starts with IPv6 on.
	DisableIPv6 bool `yaml:"disableIPv6,omitempty"`
}

// Store reads and writes Defaults as a yaml file.
type Store struct {
	path string
}

// NewStore creates a Store backed by path. An empty path selects
// DefaultStorePath. The parent directory is created on the first Save.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultStorePath()
	}
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored defaults. A missing file yields zero Defaults.
func (s *Store) Load() (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return d, nil
		}
		return d, fmt.Errorf("reading defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return d, nil
}

// Save writes d atomically by renaming a temp file over the target.
func (s *Store) Save(d Defaults) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	// The file holds the user token.
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming config file: %w", err)
	}
	committed = true
	return nil
}

// Update loads the defaults, applies fn and saves the result.
func (s *Store) Update(fn func(*Defaults)) error {
	d, err := s.Load()
	if err != nil {
		return err
	}
	fn(&d)
	return s.Save(d)
}
