// Package modsettings packages a local mod-settings.dat as an uploadable mod
// archive, so the hosted server runs with the same mod settings as the
// player's own game.
package modsettings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

const (
	// DatName is the settings file Factorio keeps in its mods directory.
	DatName = "mod-settings.dat"
	// ZipName is the archive Build writes next to DatName.
	ZipName = "mod-settings.zip"

	manifestName    = "info.json"
	manifestVersion = "0.1.0"
)

// ErrNoSettings is returned when the mods directory has no mod-settings.dat.
var ErrNoSettings = errors.New("mod-settings.dat not found")

// Manifest is the info.json placed in the archive.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func defaultManifest() Manifest {
	return Manifest{
		Name:        DatName,
		Version:     manifestVersion,
		Title:       DatName,
		Description: "Mod settings for factorio.zone packaged by fzm",
	}
}

// Build writes modsDir/mod-settings.zip containing modsDir/mod-settings.dat
// and a generated manifest, returning the archive path.
func Build(modsDir string) (string, error) {
	datPath := filepath.Join(modsDir, DatName)
	dat, err := os.Open(datPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoSettings, modsDir)
		}
		return "", fmt.Errorf("opening %s: %w", datPath, err)
	}
	defer dat.Close()

	info, err := dat.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", datPath, err)
	}

	zipPath := filepath.Join(modsDir, ZipName)
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", zipPath, err)
	}
	if err := write(out, dat, info); err != nil {
		out.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("writing %s: %w", zipPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("closing %s: %w", zipPath, err)
	}
	return zipPath, nil
}

func write(w io.Writer, dat io.Reader, info os.FileInfo) error {
	zw := zip.NewWriter(w)

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = DatName
	hdr.Method = zip.Deflate
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, dat); err != nil {
		return err
	}

	manifest, err := json.MarshalIndent(defaultManifest(), "", "  ")
	if err != nil {
		return err
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     manifestName,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	})
	if err != nil {
		return err
	}
	if _, err := mw.Write(manifest); err != nil {
		return err
	}
	return zw.Close()
}
