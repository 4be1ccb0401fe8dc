package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.DocumentRegistry = (*Registry)(nil)

// Registry is an in-memory document registry. Entries are stored as deep
// copies so callers cannot mutate registry state through returned values.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*domain.DocumentArtifacts
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*domain.DocumentArtifacts)}
}

// Get returns a copy of the artifacts for id.
func (r *Registry) Get(_ context.Context, id string) (*domain.DocumentArtifacts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return clone(a)
}

// Put replaces the entry for the document's id.
func (r *Registry) Put(_ context.Context, artifacts *domain.DocumentArtifacts) error {
	if artifacts == nil || artifacts.Raw.ID == "" {
		return fmt.Errorf("%w: artifacts without document id", domain.ErrInvalidInput)
	}
	c, err := clone(artifacts)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c.Raw.ID] = c
	return nil
}

// List returns summaries ordered by upload time, then id.
func (r *Registry) List(_ context.Context) ([]domain.DocumentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DocumentSummary, 0, len(r.entries))
	for _, a := range r.entries {
		out = append(out, a.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

// clone deep-copies artifacts. Embedding vectors are carried separately
// because they are excluded from JSON.
func clone(a *domain.DocumentArtifacts) (*domain.DocumentArtifacts, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("copy artifacts: %w", err)
	}
	var out domain.DocumentArtifacts
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy artifacts: %w", err)
	}
	for i := range out.Embeddings {
		if i < len(a.Embeddings) && a.Embeddings[i].Vector != nil {
			out.Embeddings[i].Vector = append([]float32(nil), a.Embeddings[i].Vector...)
		}
	}
	return &out, nil
}
