// Package uploads turns command line paths into mod and save uploads,
// checking that every file is a zip archive before anything is sent.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/fzmanager/fzm/internal/client"
)

const zipMIME = "application/zip"

// ErrNotZip is returned for files whose content is not a zip archive.
var ErrNotZip = errors.New("not a zip archive")

// CheckZip verifies that path is a regular file holding a zip archive and
// returns its size. Formats built on zip (jar, docx, ...) are accepted.
func CheckZip(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: not a regular file", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return 0, fmt.Errorf("detecting type of %s: %w", path, err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(zipMIME) {
			return info.Size(), nil
		}
	}
	return 0, fmt.Errorf("%s: %w (detected %s)", path, ErrNotZip, mt.String())
}

// CollectMods expands args into mod uploads. A directory contributes the
// *.zip files directly inside it, an argument containing glob syntax
// (including **) is matched with doublestar, anything else names a file.
// Duplicates are dropped and argument order is kept.
func CollectMods(args []string) ([]client.Mod, error) {
	var (
		mods []client.Mod
		seen = map[string]bool{}
	)
	for _, arg := range args {
		paths, err := expand(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true

			size, err := CheckZip(p)
			if err != nil {
				return nil, err
			}
			mods = append(mods, client.Mod{Name: filepath.Base(p), FilePath: p, Size: size})
		}
	}
	return mods, nil
}

// SaveFile prepares a save upload of path into slot.
func SaveFile(path, slot string) (client.Save, error) {
	size, err := CheckZip(path)
	if err != nil {
		return client.Save{}, err
	}
	return client.Save{Name: filepath.Base(path), FilePath: path, Size: size, Slot: slot}, nil
}

func expand(arg string) ([]string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		matches, err := doublestar.FilepathGlob(filepath.Join(arg, "*.zip"))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no .zip files in %s", arg)
		}
		slices.Sort(matches)
		return matches, nil
	}

	if strings.ContainsAny(arg, "*?[{") {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", arg)
		}
		slices.Sort(matches)
		return matches, nil
	}

	return []string{arg}, nil
}
