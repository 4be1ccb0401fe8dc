package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Retriever turns a question into ranked index hits.
type Retriever struct {
	gateway   *EmbeddingGateway
	index     driven.VectorIndex
	overfetch int
}

// NewRetriever creates a retriever. overfetch multiplies top_k when a
// document filter is present; values below 1 are treated as 1.
func NewRetriever(gateway *EmbeddingGateway, index driven.VectorIndex, overfetch int) *Retriever {
	if overfetch < 1 {
		overfetch = 1
	}
	return &Retriever{gateway: gateway, index: index, overfetch: overfetch}
}

// Retrieve returns up to topK hits for question, restricted to docFilter
// when it is non-empty. topK is clamped to 1..20. An empty index yields no
// hits and no error.
func (r *Retriever) Retrieve(
	ctx context.Context,
	question string,
	topK int,
	docFilter []string,
) ([]domain.SearchHit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	topK = domain.ClampTopK(topK)

	size := r.index.Len()
	if size == 0 {
		return []domain.SearchHit{}, nil
	}

	query, err := r.gateway.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	k := topK
	if len(docFilter) > 0 {
		k = min(topK*r.overfetch, size)
	}

	hits, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if len(docFilter) > 0 {
		allowed := make(map[string]struct{}, len(docFilter))
		for _, id := range docFilter {
			allowed[id] = struct{}{}
		}
		filtered := hits[:0]
		for _, h := range hits {
			if _, ok := allowed[h.Metadata.DocumentID]; ok {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
