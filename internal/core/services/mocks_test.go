package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// mockEmbeddingService returns a fixed vector per text, or a vector derived
// from the text length when vectorFor is set.
type mockEmbeddingService struct {
	mu        sync.Mutex
	dims      int
	embedErr  error
	vectorFor func(text string) []float32
	calls     [][]string
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.vectorFor != nil {
			out[i] = m.vectorFor(t)
			continue
		}
		v := make([]float32, m.Dimensions())
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

func (m *mockEmbeddingService) batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLMService returns a canned response.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	prompts  []string
	opts     []driven.GenerateOptions
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockSchemaRegistry knows a single "Summary" schema requiring a "summary" string.
type mockSchemaRegistry struct {
	validateErr error
}

const mockSchemaName = "Summary"

func (m *mockSchemaRegistry) Get(name string) (domain.SchemaDescriptor, error) {
	if name != mockSchemaName {
		return domain.SchemaDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, name)
	}
	return domain.SchemaDescriptor{
		Name:     mockSchemaName,
		Document: []byte(`{"type":"object","required":["summary"]}`),
	}, nil
}

func (m *mockSchemaRegistry) Names() []string { return []string{mockSchemaName} }

func (m *mockSchemaRegistry) Validate(name string, payload any) ([]string, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	if _, err := m.Get(name); err != nil {
		return nil, err
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return []string{"payload is not an object"}, nil
	}
	if _, ok := obj["summary"].(string); !ok {
		return []string{"summary is required"}, nil
	}
	return nil, nil
}

// mockPromptStore serves templates from a map.
type mockPromptStore struct {
	templates map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t, nil
}

func (m *mockPromptStore) Reload() {}

// mockMetrics records calls.
type mockMetrics struct {
	mu          sync.Mutex
	queries     []string
	fallbacks   []string
	ingested    []domain.DocumentStatus
	evaluations []bool
	rows        int
}

func (m *mockMetrics) QueryServed(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, outcome)
}

func (m *mockMetrics) LLMFallback(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, reason)
}

func (m *mockMetrics) DocumentIngested(status domain.DocumentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, status)
}

func (m *mockMetrics) EvaluationRecorded(passed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, passed)
}

func (m *mockMetrics) IndexRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = n
}

// mockEmbeddingCache is a map-backed cache.
type mockEmbeddingCache struct {
	mu     sync.Mutex
	data   map[string][]float32
	getErr error
	hits   int
}

func newMockEmbeddingCache() *mockEmbeddingCache {
	return &mockEmbeddingCache{data: make(map[string][]float32)}
}

func (m *mockEmbeddingCache) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[model+"|"+text]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *mockEmbeddingCache) Set(_ context.Context, model, text string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[model+"|"+text] = vector
	return nil
}

func (m *mockEmbeddingCache) Close() error { return nil }

// mockBlobStore keeps uploads in memory and optionally exposes local paths.
type mockBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *mockBlobStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *mockBlobStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockBlobStore) URL(_ context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

func (m *mockBlobStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// mockPageExtractor treats the downloaded file content as one page per
// form feed.
type mockPageExtractor struct {
	err   error
	paths []string
	mu    sync.Mutex
}

func (m *mockPageExtractor) ExtractPages(_ context.Context, _ domain.RawDocument, path string) ([]domain.Page, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(data), "\f")
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{PageNumber: i + 1, Text: p, ExtractionMethod: domain.ExtractionText}
	}
	return pages, nil
}

// mockTableExtractor returns fixed tables or an error.
type mockTableExtractor struct {
	tables []domain.Table
	err    error
}

func (m *mockTableExtractor) ExtractTables(_ context.Context, _ domain.RawDocument, _ []domain.Page) ([]domain.Table, error) {
	return m.tables, m.err
}

var errBoom = errors.New("boom")
