package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const partialSuffix = ".partial"

// LocalStorage keeps rendered exports under one root directory. Files are
// written owner-only and become visible atomically.
type LocalStorage struct {
	root string
	now  func() time.Time
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if strings.TrimSpace(root) == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root, now: time.Now}, nil
}

// Save writes data to name and returns the name to store in tokens.
func (s *LocalStorage) Save(name string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("prepare %s: %w", name, err)
	}
	tmp := path + partialSuffix
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return filepath.ToSlash(filepath.Clean(name)), nil
}

// Open returns the stored file for reading.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// CleanupOlderThan deletes files last modified more than ttl ago, including
// abandoned partial writes, and returns their names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := s.now().Add(-ttl)
	var removed []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if rel, err := filepath.Rel(s.root, path); err == nil {
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("sweep storage: %w", err)
	}
	return removed, nil
}

// path maps a relative name into root, rejecting anything that would escape it.
func (s *LocalStorage) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("storage name %q is not a local path", name)
	}
	return filepath.Join(s.root, name), nil
}
