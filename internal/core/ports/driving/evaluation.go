package driving

import (
	"context"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// EvaluationService scores answers for faithfulness, hallucination risk and
// schema compliance. It never returns an error; scoring failures yield a
// failed verdict.
type EvaluationService interface {
	Evaluate(ctx context.Context, input domain.EvaluationInput) domain.EvaluationResult

	// EvaluateCases scores each case in order. Unnamed cases are called
	// case-N.
	EvaluateCases(ctx context.Context, cases []domain.EvaluationCase) []domain.CaseOutcome
}
