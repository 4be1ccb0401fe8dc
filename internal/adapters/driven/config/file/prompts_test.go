package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), PromptDirName)
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_NoIO(t *testing.T) {
	store, dir := newTestPromptStore(t)
	assert.Equal(t, dir, store.Dir())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_WritesDefaults(t *testing.T) {
	store, dir := newTestPromptStore(t)

	prompt, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptGroundedAnswer], prompt)

	for _, f := range []string{"grounded_answer.txt", "schema_instructions.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s", f)
	}
}

func TestPromptStore_Load_DefaultRoundTripsThroughFile(t *testing.T) {
	store, _ := newTestPromptStore(t)

	prompt, err := store.Load(driven.PromptSchemaInstructions)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptSchemaInstructions], prompt)
	assert.Contains(t, prompt, "{{schema}}")
}

func TestPromptStore_Load_CustomFile(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0o700))

	custom := "Answer tersely.\n{{question}}\n{{context}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grounded_answer.txt"), []byte(custom+"\n\n"), 0o600))

	prompt, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackWhenFileRemoved(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "grounded_answer.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{context}}")
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("missing_prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_prompt")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store, dir := newTestPromptStore(t)

	first, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)

	path := filepath.Join(dir, "grounded_answer.txt")
	require.NoError(t, os.WriteFile(path, []byte("edited {{question}}"), 0o600))

	cached, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Equal(t, "edited {{question}}", fresh)
}

func TestPromptStore_KeepsExistingFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(dir, 0o700))

	path := filepath.Join(dir, "schema_instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0o600))

	_, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestPromptStore_InitFailureUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptGroundedAnswer)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptGroundedAnswer], prompt)

	_, err = store.Load("missing_prompt")
	assert.Error(t, err)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.Load(driven.PromptGroundedAnswer)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
