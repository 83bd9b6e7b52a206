package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "config.yaml"))

	d, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)
}

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fz", "config.yaml")
	s := NewStore(path)

	want := Defaults{UserToken: "tok-1", Region: "eu-central-1", Version: "1.1.110", Slot: "slot3", DisableIPv6: true}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreUpdateKeepsOtherFields(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, s.Save(Defaults{UserToken: "tok-1", Region: "us-east-1"}))

	require.NoError(t, s.Update(func(d *Defaults) { d.Slot = "slot2" }))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults{UserToken: "tok-1", Region: "us-east-1", Slot: "slot2"}, got)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("userToken: [unclosed"), 0o600))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestNewStoreDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultStorePath(), NewStore("").Path())
}
