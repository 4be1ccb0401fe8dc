package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// EmbeddingGateway batches texts through an embedding provider with bounded
// concurrency and an optional cache. Output order always matches input order.
type EmbeddingGateway struct {
	provider  driven.EmbeddingService
	cache     driven.EmbeddingCache
	dim       int
	batchSize int
	workers   int
}

// GatewayOption configures an EmbeddingGateway.
type GatewayOption func(*EmbeddingGateway)

// WithEmbeddingCache enables the vector cache.
func WithEmbeddingCache(cache driven.EmbeddingCache) GatewayOption {
	return func(g *EmbeddingGateway) {
		g.cache = cache
	}
}

// WithBatchSize sets the number of texts sent per provider call.
func WithBatchSize(n int) GatewayOption {
	return func(g *EmbeddingGateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithEmbedWorkers bounds concurrent provider calls.
func WithEmbedWorkers(n int) GatewayOption {
	return func(g *EmbeddingGateway) {
		if n > 0 {
			g.workers = n
		}
	}
}

// NewEmbeddingGateway creates a gateway producing vectors of length dim.
func NewEmbeddingGateway(provider driven.EmbeddingService, dim int, opts ...GatewayOption) *EmbeddingGateway {
	g := &EmbeddingGateway{
		provider:  provider,
		dim:       dim,
		batchSize: domain.DefaultBatchSize,
		workers:   domain.DefaultEmbedWorkers,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimensions returns the vector length the gateway guarantees.
func (g *EmbeddingGateway) Dimensions() int {
	return g.dim
}

// ModelName returns the provider's model name.
func (g *EmbeddingGateway) ModelName() string {
	return g.provider.ModelName()
}

// EmbedQuery embeds a single question.
func (g *EmbeddingGateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	missing := g.fromCache(ctx, texts, out)
	if len(missing) == 0 {
		return out, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for start := 0; start < len(missing); start += g.batchSize {
		end := min(start+g.batchSize, len(missing))
		positions := missing[start:end]

		eg.Go(func() error {
			batch := make([]string, len(positions))
			for i, pos := range positions {
				batch[i] = texts[pos]
			}

			vectors, err := g.provider.EmbedBatch(egCtx, batch)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", positions[0], err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: provider returned %d vectors for %d texts",
					domain.ErrLengthMismatch, len(vectors), len(batch))
			}
			for i, v := range vectors {
				if len(v) != g.dim {
					return fmt.Errorf("%w: provider returned length %d, expected %d",
						domain.ErrDimensionMismatch, len(v), g.dim)
				}
				out[positions[i]] = v
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.toCache(ctx, texts, missing, out)
	return out, nil
}

// fromCache fills out from the cache and returns the positions still missing.
func (g *EmbeddingGateway) fromCache(ctx context.Context, texts []string, out [][]float32) []int {
	missing := make([]int, 0, len(texts))
	if g.cache == nil {
		for i := range texts {
			missing = append(missing, i)
		}
		return missing
	}

	model := g.provider.ModelName()
	for i, text := range texts {
		v, ok, err := g.cache.Get(ctx, model, text)
		if err != nil {
			logger.Debug("embedding cache get: %v", err)
		}
		if ok && len(v) == g.dim {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}
	return missing
}

func (g *EmbeddingGateway) toCache(ctx context.Context, texts []string, positions []int, out [][]float32) {
	if g.cache == nil {
		return
	}
	model := g.provider.ModelName()
	for _, pos := range positions {
		if err := g.cache.Set(ctx, model, texts[pos], out[pos]); err != nil {
			logger.Debug("embedding cache set: %v", err)
			return
		}
	}
}
