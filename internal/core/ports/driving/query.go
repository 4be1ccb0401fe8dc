package driving

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// QueryService answers questions from indexed documents.
type QueryService interface {
	// Ask returns a structurally valid response for any non-empty question.
	// Only invalid requests (empty question, unknown schema) return an error.
	Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)

	// Schemas lists the response schema names Ask accepts.
	Schemas() []string
}
