package driven

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// VectorIndex is an append-only cosine similarity index over fixed-dimension
// vectors with row-aligned metadata.
//
// Add calls are serialised. Search may run concurrently with other searches
// and observes the index either before or after any given Add.
type VectorIndex interface {
	// Add normalises and appends vectors with their metadata.
	// Returns domain.ErrLengthMismatch or domain.ErrDimensionMismatch
	// without modifying the index.
	Add(ctx context.Context, vectors [][]float32, metas []domain.IndexMetadata) error

	// Search returns up to k hits in descending score order.
	Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error)

	// Len returns the number of rows.
	Len() int

	// Dimensions returns the fixed vector dimension.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// IndexSnapshot is the persisted content of an index.
type IndexSnapshot struct {
	Dim      int
	Vectors  [][]float32
	Metadata []domain.IndexMetadata
}

// IndexPersister durably stores index rows.
type IndexPersister interface {
	// Load returns the persisted rows. An empty store returns a zero-row
	// snapshot. Misaligned vectors and metadata return domain.ErrCorruptIndex.
	Load(ctx context.Context) (IndexSnapshot, error)

	// Append durably writes rows starting at row position from. Vectors and
	// metadata are committed together or not at all.
	Append(ctx context.Context, from, dim int, vectors [][]float32, metas []domain.IndexMetadata) error

	// Close releases resources.
	Close() error
}
