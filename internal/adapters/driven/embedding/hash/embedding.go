// Package hash provides an offline hashing-vectorizer embedding service.
// It needs no model download and no network, and is the fallback when no
// remote provider is configured or reachable.
package hash

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is reported by the service.
const ModelName = "hashing-vectorizer"

// tokenPattern matches words of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// EmbeddingService maps each token to a bucket with FNV-1a and counts
// occurrences. Vectors are unnormalised; the index normalises on insert.
type EmbeddingService struct {
	dim int
}

// NewEmbeddingService creates a hashing embedder with dim buckets.
// A non-positive dim uses domain.DefaultDimensions.
func NewEmbeddingService(dim int) *EmbeddingService {
	if dim <= 0 {
		dim = domain.DefaultDimensions
	}
	return &EmbeddingService{dim: dim}
}

// Embed returns the token count vector for text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vectorize(text), nil
}

// EmbedBatch embeds each text independently.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vectorize(text)
	}
	return out, nil
}

// Dimensions returns the number of hash buckets.
func (s *EmbeddingService) Dimensions() int {
	return s.dim
}

// ModelName returns the vectorizer name.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vectorize(text string) []float32 {
	v := make([]float32, s.dim)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%uint32(s.dim)]++
	}
	return v
}
