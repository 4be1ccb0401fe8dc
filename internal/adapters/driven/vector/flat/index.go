package flat

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// normEpsilon is added to every norm before dividing.
const normEpsilon = 1e-12

// Index is an append-only in-memory vector index backed by a persister.
type Index struct {
	// writeMu serialises Add; mu guards the published rows.
	writeMu sync.Mutex
	mu      sync.RWMutex

	dim       int
	vectors   [][]float32
	metas     []domain.IndexMetadata
	persister driven.IndexPersister
}

// New creates an empty index of the given dimension. A nil persister keeps
// the index in memory only.
func New(dim int, persister driven.IndexPersister) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dim)
	}
	return &Index{dim: dim, persister: persister}, nil
}

// Open creates an index and loads any rows already held by the persister.
func Open(ctx context.Context, dim int, persister driven.IndexPersister) (*Index, error) {
	idx, err := New(dim, persister)
	if err != nil {
		return nil, err
	}
	if persister == nil {
		return idx, nil
	}

	snap, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if len(snap.Vectors) == 0 && len(snap.Metadata) == 0 {
		return idx, nil
	}
	if snap.Dim != dim {
		return nil, fmt.Errorf("%w: stored dimension %d, configured %d", domain.ErrDimensionMismatch, snap.Dim, dim)
	}
	if len(snap.Vectors) != len(snap.Metadata) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadata rows",
			domain.ErrCorruptIndex, len(snap.Vectors), len(snap.Metadata))
	}
	for i, v := range snap.Vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values", domain.ErrCorruptIndex, i, len(v))
		}
	}

	idx.vectors = snap.Vectors
	idx.metas = snap.Metadata
	logger.Debug("vector index loaded: %d rows, dim %d", len(idx.vectors), dim)
	return idx, nil
}

// Add normalises and appends vectors with their metadata.
func (x *Index) Add(ctx context.Context, vectors [][]float32, metas []domain.IndexMetadata) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("%w: %d vectors, %d metadata", domain.ErrLengthMismatch, len(vectors), len(metas))
	}
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("%w: vector %d has length %d, index dimension is %d",
				domain.ErrDimensionMismatch, i, len(v), x.dim)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	rows := make([][]float32, len(vectors))
	for i, v := range vectors {
		rows[i] = Normalize(v)
	}
	copied := make([]domain.IndexMetadata, len(metas))
	copy(copied, metas)

	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	from := len(x.vectors)
	if x.persister != nil {
		if err := x.persister.Append(ctx, from, x.dim, rows, copied); err != nil {
			return fmt.Errorf("persist rows %d..%d: %w", from, from+len(rows)-1, err)
		}
	}

	x.mu.Lock()
	x.vectors = append(x.vectors, rows...)
	x.metas = append(x.metas, copied...)
	x.mu.Unlock()

	return nil
}

// Search returns up to k hits ordered by descending cosine similarity.
// Equal scores keep row order.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has length %d, index dimension is %d",
			domain.ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	q := Normalize(query)

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.SearchHit, len(x.vectors))
	for row, v := range x.vectors {
		hits[row] = domain.SearchHit{Row: row, Score: dot(q, v)}
	}

	slices.SortFunc(hits, func(a, b domain.SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Metadata = x.metas[hits[i].Row]
	}
	return hits, nil
}

// Len returns the number of rows.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimensions returns the fixed vector dimension.
func (x *Index) Dimensions() int {
	return x.dim
}

// Close releases the persister.
func (x *Index) Close() error {
	if x.persister == nil {
		return nil
	}
	return x.persister.Close()
}

// Normalize returns v scaled to unit L2 norm. Zero vectors stay zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
