package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

type mockDocuments struct {
	mu        sync.Mutex
	submitted []string
	err       error
}

func (m *mockDocuments) Submit(_ context.Context, filename string, r io.Reader, _ int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, filename)
	return "id-" + filename, nil
}

func (m *mockDocuments) Status(context.Context, string) (*domain.DocumentSummary, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) Get(context.Context, string) (*domain.DocumentArtifacts, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) List(context.Context) ([]domain.DocumentSummary, error) {
	return nil, nil
}

func (m *mockDocuments) Chunks(context.Context, string, int) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *mockDocuments) Tables(context.Context, string) ([]domain.Table, error) {
	return nil, nil
}

func TestNew_RejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), &mockDocuments{})
	assert.Error(t, err)
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := New(path, &mockDocuments{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	png := filepath.Join(dir, "scan.png")
	txt := filepath.Join(dir, "notes.txt")
	hidden := filepath.Join(dir, ".draft.pdf")
	sub := filepath.Join(dir, "nested.pdf")
	for _, p := range []string{pdf, png, txt, hidden} {
		require.NoError(t, os.WriteFile(p, []byte("content"), 0600))
	}
	require.NoError(t, os.Mkdir(sub, 0700))

	w, err := New(dir, &mockDocuments{})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want string
	}{
		{"create pdf", pdf, fsnotify.Create, pdf},
		{"write image", png, fsnotify.Write, png},
		{"write and chmod", pdf, fsnotify.Write | fsnotify.Chmod, pdf},
		{"chmod only", pdf, fsnotify.Chmod, ""},
		{"remove", pdf, fsnotify.Remove, ""},
		{"rename", pdf, fsnotify.Rename, ""},
		{"unsupported extension", txt, fsnotify.Create, ""},
		{"hidden file", hidden, fsnotify.Create, ""},
		{"directory", sub, fsnotify.Create, ""},
		{"vanished file", filepath.Join(dir, "gone.pdf"), fsnotify.Create, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.handleEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDue_WaitsForSettle(t *testing.T) {
	w, err := New(t.TempDir(), &mockDocuments{}, WithSettle(time.Second))
	require.NoError(t, err)

	start := time.Now()
	w.touch("a.pdf", start)
	w.touch("b.pdf", start.Add(800*time.Millisecond))

	assert.Empty(t, w.due(start.Add(500*time.Millisecond)))
	assert.Equal(t, []string{"a.pdf"}, w.due(start.Add(time.Second)))
	assert.Empty(t, w.due(start.Add(time.Second)), "due paths are removed")
	assert.Equal(t, []string{"b.pdf"}, w.due(start.Add(2*time.Second)))
}

func TestDue_WriteResetsTimer(t *testing.T) {
	w, err := New(t.TempDir(), &mockDocuments{}, WithSettle(time.Second))
	require.NoError(t, err)

	start := time.Now()
	w.touch("a.pdf", start)
	w.touch("a.pdf", start.Add(900*time.Millisecond))

	assert.Empty(t, w.due(start.Add(time.Second)))
	assert.Len(t, w.due(start.Add(2*time.Second)), 1)
}

func TestRun_SubmitsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("pdf"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("txt"), 0600))

	docs := &mockDocuments{}
	w, err := New(dir, docs, WithExisting(), WithSettle(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Submitted, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	select {
	case s := <-out:
		assert.NoError(t, s.Err)
		assert.Equal(t, "id-a.pdf", s.DocumentID)
	case <-time.After(5 * time.Second):
		t.Fatal("existing file was not submitted")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"a.pdf"}, docs.submitted)
}

func TestRun_SubmitsNewFile(t *testing.T) {
	dir := t.TempDir()
	docs := &mockDocuments{}
	w, err := New(dir, docs, WithSettle(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Submitted, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.jpg"), []byte("jpg"), 0600))

	select {
	case s := <-out:
		assert.Equal(t, filepath.Join(dir, "new.jpg"), s.Path)
		assert.Equal(t, "id-new.jpg", s.DocumentID)
	case <-time.After(5 * time.Second):
		t.Fatal("new file was not submitted")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestSubmitFile_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(domain.MaxUploadBytes+1))
	require.NoError(t, f.Close())

	w, err := New(dir, &mockDocuments{})
	require.NoError(t, err)

	_, err = w.submitFile(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}
