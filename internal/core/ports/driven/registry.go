package driven

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// DocumentRegistry maps document ids to their artifacts.
// Entries are never deleted.
type DocumentRegistry interface {
	// Get returns the artifacts for a document or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.DocumentArtifacts, error)

	// Put creates or replaces the artifacts for a document.
	Put(ctx context.Context, artifacts *domain.DocumentArtifacts) error

	// List returns status summaries ordered by upload time.
	List(ctx context.Context) ([]domain.DocumentSummary, error)
}
