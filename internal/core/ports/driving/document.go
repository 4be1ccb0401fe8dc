package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// DocumentService accepts uploads and reports their processing state.
type DocumentService interface {
	// Submit validates and stores an upload and schedules its ingestion.
	// It returns the new document id without waiting for processing.
	Submit(ctx context.Context, filename string, r io.Reader, size int64) (string, error)

	// Status returns counts for a document or domain.ErrNotFound.
	Status(ctx context.Context, id string) (*domain.DocumentSummary, error)

	// Get returns the full artifacts for a document or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.DocumentArtifacts, error)

	// List returns summaries of all registered documents.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Chunks returns a document's chunks, restricted to page when page > 0.
	Chunks(ctx context.Context, id string, page int) ([]domain.Chunk, error)

	// Tables returns the tables extracted from a document.
	Tables(ctx context.Context, id string) ([]domain.Table, error)
}
