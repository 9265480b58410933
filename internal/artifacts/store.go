// Package artifacts lists, opens and deletes persisted download outputs.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
)

// StreamPrefix is the route artifacts are served from.
const StreamPrefix = "/api/video/stream/"

// Errors returned by the store.
var (
	ErrNotFound        = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
)

// mediaExts holds every listed extension.
var mediaExts = func() map[string]struct{} {
	m := make(map[string]struct{}, len(consts.AllVidExtensions)+len(consts.AllAudioExtensions))
	for _, e := range consts.AllVidExtensions {
		m[e] = struct{}{}
	}
	for _, e := range consts.AllAudioExtensions {
		m[e] = struct{}{}
	}
	return m
}()

// Store works directly on the download directory.
//
// It is independent of the job registry: files are listed whether or
// not the job that wrote them is still tracked.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("download directory is empty")
	}
	if err := os.MkdirAll(dir, consts.PermsGenericDir); err != nil {
		return nil, fmt.Errorf("failed to create download directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path for a filename in the store.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// List enumerates media files in the store, newest first.
func (s *Store) List() ([]models.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read download directory %q: %w", s.dir, err)
	}

	out := make([]models.Artifact, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsMedia(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, models.Artifact{
			Filename:  e.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
			URL:       StreamPrefix + url.PathEscape(e.Name()),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Open opens a stored file for reading.
func (s *Store) Open(filename string) (*os.File, os.FileInfo, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%q: %w", filename, ErrNotFound)
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%q: %w", filename, ErrNotFound)
	}
	return f, info, nil
}

// Delete removes a stored file.
func (s *Store) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", filename, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %q: %w", filename, err)
	}
	return nil
}

// resolve maps a bare filename to a path inside the store.
func (s *Store) resolve(filename string) (string, error) {
	if filename == "" ||
		filename == "." ||
		filename == ".." ||
		strings.ContainsAny(filename, `/\`) ||
		filepath.Base(filename) != filename {
		return "", fmt.Errorf("%q: %w", filename, ErrInvalidFilename)
	}
	return filepath.Join(s.dir, filename), nil
}

// IsMedia reports whether the filename has a known audio or video extension.
func IsMedia(filename string) bool {
	_, ok := mediaExts[strings.ToLower(filepath.Ext(filename))]
	return ok
}
