package key

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultDir is the directory scanned when no key file is given explicitly.
const DefaultDir = "keys"

const privateMarker = "private"

// SelectLatest returns the most recently modified source. Ties keep the
// earlier entry, so enumeration order decides between equal timestamps.
func SelectLatest(sources []PrivateKeySource) (PrivateKeySource, error) {
	if len(sources) == 0 {
		return PrivateKeySource{}, ErrNoKeys
	}
	latest := sources[0]
	for _, s := range sources[1:] {
		if s.ModTime.After(latest.ModTime) {
			latest = s
		}
	}
	return latest, nil
}

// ListCandidates returns the regular files directly under dir whose name
// contains "private". Paths in the result are relative to fsys.
func ListCandidates(fsys fs.FS, dir string) ([]PrivateKeySource, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNoKeys, err)
		}
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}

	var rv []PrivateKeySource
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.Contains(entry.Name(), privateMarker) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		rv = append(rv, PrivateKeySource{
			Path:    path.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}
	return rv, nil
}

// Locate picks the newest private key file in dir. The returned path is
// dir joined with the file name.
func Locate(dir string) (PrivateKeySource, error) {
	candidates, err := ListCandidates(os.DirFS(dir), ".")
	if err != nil {
		return PrivateKeySource{}, err
	}
	selected, err := SelectLatest(candidates)
	if err != nil {
		return PrivateKeySource{}, fmt.Errorf("%w in the %s directory", err, dir)
	}
	selected.Path = filepath.Join(dir, filepath.FromSlash(selected.Path))
	return selected, nil
}
