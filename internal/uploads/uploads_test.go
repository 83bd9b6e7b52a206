package uploads

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("info.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"name":"example"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestCheckZip(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "mod.zip")
	writeZip(t, good)

	size, err := CheckZip(good)
	require.NoError(t, err)
	info, _ := os.Stat(good)
	assert.Equal(t, info.Size(), size)

	bad := filepath.Join(dir, "notes.zip")
	require.NoError(t, os.WriteFile(bad, []byte("just text"), 0o644))
	_, err = CheckZip(bad)
	assert.ErrorIs(t, err, ErrNotZip)

	_, err = CheckZip(dir)
	assert.Error(t, err)

	_, err = CheckZip(filepath.Join(dir, "missing.zip"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectModsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "b.zip"))
	writeZip(t, filepath.Join(dir, "a.zip"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))

	mods, err := CollectMods([]string{dir})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "a.zip", mods[0].Name)
	assert.Equal(t, "b.zip", mods[1].Name)
	assert.Positive(t, mods[0].Size)
}

func TestCollectModsFromPatternAndFiles(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "nested", "deep", "c.zip"))
	writeZip(t, filepath.Join(dir, "top.zip"))

	mods, err := CollectMods([]string{
		filepath.Join(dir, "top.zip"),
		filepath.Join(dir, "**", "*.zip"),
	})
	require.NoError(t, err)

	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"top.zip", "c.zip"}, names, "duplicates are dropped")
}

func TestCollectModsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := CollectMods([]string{dir})
	assert.ErrorContains(t, err, "no .zip files")

	_, err = CollectMods([]string{filepath.Join(dir, "*.zip")})
	assert.ErrorContains(t, err, "no files match")

	text := filepath.Join(dir, "fake.zip")
	require.NoError(t, os.WriteFile(text, []byte("plain"), 0o644))
	_, err = CollectMods([]string{text})
	assert.ErrorIs(t, err, ErrNotZip)
}

func TestSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.zip")
	writeZip(t, path)

	save, err := SaveFile(path, "slot4")
	require.NoError(t, err)
	assert.Equal(t, "world.zip", save.Name)
	assert.Equal(t, "slot4", save.Slot)
	assert.Equal(t, path, save.FilePath)
}
