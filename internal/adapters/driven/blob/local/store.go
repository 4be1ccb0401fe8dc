// Package local stores uploaded files on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.BlobStore      = (*Store)(nil)
	_ driven.LocalBlobStore = (*Store)(nil)
)

// Store keeps blobs as files under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty upload directory", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Upload writes r to key. The file is written to a temporary name and
// renamed into place so readers never observe a partial upload.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close blob %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store blob %s: %w", key, err)
	}
	return path, nil
}

// Download opens key for reading.
func (s *Store) Download(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// URL returns a file:// location for key.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve blob path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// LocalPath returns the filesystem path for key. Keys that would escape
// the base directory resolve to their base name.
func (s *Store) LocalPath(key string) string {
	path, err := s.resolve(key)
	if err != nil {
		return filepath.Join(s.baseDir, filepath.Base(key))
	}
	return path
}

// resolve maps key to a path inside baseDir.
func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(key)))
	if key == "" || clean == "." || filepath.IsAbs(clean) ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.baseDir, clean), nil
}
