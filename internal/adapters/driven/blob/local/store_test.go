package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return store
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_UploadDownload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path, err := store.Upload(ctx, "doc-1_report.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, store.LocalPath("doc-1_report.pdf"), path)

	rc, err := store.Download(ctx, "doc-1_report.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	ok, err := store.Exists(ctx, "doc-1_report.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_UploadOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Upload(ctx, "a.png", strings.NewReader("first"), 5, "image/png")
	require.NoError(t, err)
	_, err = store.Upload(ctx, "a.png", strings.NewReader("second"), 6, "image/png")
	require.NoError(t, err)

	data, err := os.ReadFile(store.LocalPath("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(store.baseDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_DownloadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Download(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := store.Exists(context.Background(), "missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Upload(ctx, "x.pdf", strings.NewReader("x"), 1, "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "x.pdf"))
	require.NoError(t, store.Delete(ctx, "x.pdf"))

	ok, err := store.Exists(ctx, "x.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []string{"", "..", "../secret", "/etc/passwd"} {
		_, err := store.Upload(ctx, key, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "key %q", key)
	}

	assert.Equal(t, filepath.Join(store.baseDir, "secret"), store.LocalPath("../secret"))
}

func TestStore_URL(t *testing.T) {
	store := newTestStore(t)

	url, err := store.URL(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "/uploads/doc.pdf"))
}
