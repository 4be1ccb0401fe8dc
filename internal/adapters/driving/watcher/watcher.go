// Package watcher submits files dropped into a directory for ingestion.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
	"github.com/custodia-labs/docintel/internal/logger"
)

// DefaultSettle is how long a file must be quiet before it is submitted.
const DefaultSettle = 750 * time.Millisecond

// Submitted is reported for every file handed to the document service.
type Submitted struct {
	Path       string
	DocumentID string
	Err        error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithExisting submits supported files already present when Run starts.
func WithExisting() Option {
	return func(w *Watcher) {
		w.existing = true
	}
}

// Watcher watches one directory (not recursively).
type Watcher struct {
	dir      string
	docs     driving.DocumentService
	settle   time.Duration
	existing bool

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for dir.
func New(dir string, docs driving.DocumentService, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	w := &Watcher{
		dir:     dir,
		docs:    docs,
		settle:  DefaultSettle,
		pending: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled. Each submission is sent on out when
// out is non-nil.
func (w *Watcher) Run(ctx context.Context, out chan<- Submitted) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if w.existing {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("read %s: %w", w.dir, err)
		}
		for _, e := range entries {
			path := filepath.Join(w.dir, e.Name())
			if w.candidate(path) {
				w.submit(ctx, path, out)
			}
		}
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path := w.handleEvent(event); path != "" {
				w.touch(path, time.Now())
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.submit(ctx, path, out)
			}
		}
	}
}

// handleEvent returns the path to schedule for an event, or "".
func (w *Watcher) handleEvent(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if !w.candidate(event.Name) {
		return ""
	}
	return event.Name
}

// candidate reports whether path is a visible regular file of a supported type.
func (w *Watcher) candidate(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if domain.DocTypeFromFilename(path) == domain.DocTypeUnknown {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return true
}

func (w *Watcher) touch(path string, at time.Time) {
	w.mu.Lock()
	w.pending[path] = at
	w.mu.Unlock()
}

// due removes and returns paths quiet for at least the settle period.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) submit(ctx context.Context, path string, out chan<- Submitted) {
	id, err := w.submitFile(ctx, path)
	if err != nil {
		logger.Warn("submit %s: %v", path, err)
	} else {
		logger.Info("submitted %s as %s", filepath.Base(path), id)
	}
	if out != nil {
		select {
		case out <- Submitted{Path: path, DocumentID: id, Err: err}:
		case <-ctx.Done():
		}
	}
}

func (w *Watcher) submitFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > domain.MaxUploadBytes {
		return "", errors.Join(domain.ErrFileTooLarge, fmt.Errorf("%s is %d bytes", path, info.Size()))
	}
	return w.docs.Submit(ctx, filepath.Base(path), f, info.Size())
}
