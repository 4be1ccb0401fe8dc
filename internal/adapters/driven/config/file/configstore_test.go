package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Path(t *testing.T) {
	store, dir := newTestConfigStore(t)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewConfigStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_DirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewConfigStore(file)
	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestConfigStore(t)

	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("ingestion.workers", 4))
	require.NoError(t, store.Set("retrieval.overfetch", int64(3)))
	require.NoError(t, store.Set("llm.rate_per_second", 2.5))
	require.NoError(t, store.Set("debug", true))

	assert.Equal(t, "llama3.2", store.GetString("llm.model"))
	assert.Equal(t, 4, store.GetInt("ingestion.workers"))
	assert.Equal(t, 3, store.GetInt("retrieval.overfetch"))
	assert.Equal(t, 2.5, store.GetFloat("llm.rate_per_second"))
	assert.Equal(t, 4.0, store.GetFloat("ingestion.workers"))
	assert.True(t, store.GetBool("debug"))

	assert.Equal(t, "", store.GetString("ingestion.workers"))
	assert.Equal(t, 0, store.GetInt("llm.model"))
	assert.Equal(t, 0.0, store.GetFloat("missing"))
	assert.False(t, store.GetBool("llm.model"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SavesNestedTables(t *testing.T) {
	store, dir := newTestConfigStore(t)

	require.NoError(t, store.Set("llm.provider", "ollama"))
	require.NoError(t, store.Set("llm.timeout_seconds", 30))
	require.NoError(t, store.Set("embedding.provider", "hash"))

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[llm]")
	assert.Contains(t, content, "[embedding]")
	assert.NotContains(t, content, "'llm.provider'")
}

func TestConfigStore_ReloadPreservesValues(t *testing.T) {
	store, dir := newTestConfigStore(t)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("llm.rate_per_second", 1.5))
	require.NoError(t, store.Set("chunking.chunk_size", 800))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"chunking.chunk_size", "llm.provider", "llm.rate_per_second"}, reopened.Keys())
	assert.Equal(t, "openai", reopened.GetString("llm.provider"))
	assert.Equal(t, 1.5, reopened.GetFloat("llm.rate_per_second"))
	assert.Equal(t, 800, reopened.GetInt("chunking.chunk_size"))
}

func TestConfigStore_LoadHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[storage]
backend = "s3"
s3_bucket = "docs"

[retrieval]
overfetch = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "s3", store.GetString("storage.backend"))
	assert.Equal(t, "docs", store.GetString("storage.s3_bucket"))
	assert.Equal(t, 5, store.GetInt("retrieval.overfetch"))
}

func TestConfigStore_LoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[broken"), 0o600))

	_, err := NewConfigStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), nil, 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_ConflictingKeys(t *testing.T) {
	store, _ := newTestConfigStore(t)

	require.NoError(t, store.Set("llm", "flat"))
	err := store.Set("llm.model", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("ingestion.workers", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("ingestion.workers")
		}()
	}
	wg.Wait()

	_, ok := store.Get("ingestion.workers")
	assert.True(t, ok)
}

func TestFlattenNestRoundTrip(t *testing.T) {
	flat := map[string]any{"a.b.c": 1, "a.d": "x", "e": true}

	nested, err := nestMap(flat)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"e": true,
	}, nested)
	assert.Equal(t, flat, flattenMap(nested, ""))
}

func TestConfigStore_FailedSetIsDiscarded(t *testing.T) {
	store, _ := newTestConfigStore(t)

	require.NoError(t, store.Set("llm", "flat"))
	require.Error(t, store.Set("llm.model", "x"))

	_, ok := store.Get("llm.model")
	assert.False(t, ok)
	assert.NoError(t, store.Set("other", 1))
}

func TestConfigStore_SaveLeavesNoTempFile(t *testing.T) {
	store, dir := newTestConfigStore(t)

	require.NoError(t, store.Set("llm.model", "gpt-4o"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ConfigFileName, entries[0].Name())
}
