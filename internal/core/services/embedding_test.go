package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// lengthVector encodes the text length in the first component so order can
// be checked after batching.
func lengthVector(text string) []float32 {
	return []float32{float32(len(text)), 1, 0, 0}
}

func TestEmbeddingGateway_EmptyInput(t *testing.T) {
	provider := &mockEmbeddingService{}
	g := NewEmbeddingGateway(provider, 4)

	out, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, provider.batches())
}

func TestEmbeddingGateway_PreservesOrderAcrossBatches(t *testing.T) {
	provider := &mockEmbeddingService{vectorFor: lengthVector}
	g := NewEmbeddingGateway(provider, 4, WithBatchSize(3), WithEmbedWorkers(4))

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%*s", i+1, "x")
	}

	out, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 10)
	for i, v := range out {
		assert.Equal(t, float32(i+1), v[0], "position %d", i)
	}
	assert.Len(t, provider.batches(), 4)
}

func TestEmbeddingGateway_DimensionMismatch(t *testing.T) {
	provider := &mockEmbeddingService{dims: 3}
	g := NewEmbeddingGateway(provider, 4)

	_, err := g.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingGateway_ProviderError(t *testing.T) {
	provider := &mockEmbeddingService{embedErr: domain.ErrEmbeddingUnavailable}
	g := NewEmbeddingGateway(provider, 4)

	_, err := g.EmbedQuery(context.Background(), "question")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingGateway_UsesCache(t *testing.T) {
	provider := &mockEmbeddingService{vectorFor: lengthVector}
	cache := newMockEmbeddingCache()
	g := NewEmbeddingGateway(provider, 4, WithEmbeddingCache(cache))
	ctx := context.Background()

	_, err := g.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, provider.batches(), 1)

	out, err := g.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)

	batches := provider.batches()
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"gamma"}, batches[1])
	assert.Equal(t, float32(4), out[0][0])
	assert.Equal(t, float32(5), out[1][0])
	assert.Equal(t, float32(5), out[2][0])
	assert.Equal(t, 2, cache.hits)
}

func TestEmbeddingGateway_CacheErrorsIgnored(t *testing.T) {
	provider := &mockEmbeddingService{}
	cache := newMockEmbeddingCache()
	cache.getErr = errBoom
	g := NewEmbeddingGateway(provider, 4, WithEmbeddingCache(cache))

	out, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestEmbeddingGateway_Accessors(t *testing.T) {
	g := NewEmbeddingGateway(&mockEmbeddingService{}, 4)
	assert.Equal(t, 4, g.Dimensions())
	assert.Equal(t, "mock-embed", g.ModelName())
}
