package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService answers questions by retrieving evidence, synthesising an
// answer and attaching an advisory evaluation.
type QueryService struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	evaluator   driving.EvaluationService
	schemas     driven.SchemaRegistry
	metrics     driven.MetricsRecorder
}

// NewQueryService creates a query service. evaluator, schemas and metrics
// may be nil.
func NewQueryService(
	retriever *Retriever,
	synthesizer *Synthesizer,
	evaluator driving.EvaluationService,
	schemas driven.SchemaRegistry,
	metrics driven.MetricsRecorder,
) *QueryService {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &QueryService{
		retriever:   retriever,
		synthesizer: synthesizer,
		evaluator:   evaluator,
		schemas:     schemas,
		metrics:     metrics,
	}
}

// Ask answers req.Question. Only an empty question or an unknown schema
// name is an error; retrieval and LLM failures degrade with warnings.
func (s *QueryService) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	start := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.metrics.QueryServed(driven.OutcomeRejected, time.Since(start))
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	var schema *domain.SchemaDescriptor
	if req.Schema != "" {
		desc, err := s.lookupSchema(req.Schema)
		if err != nil {
			s.metrics.QueryServed(driven.OutcomeRejected, time.Since(start))
			return nil, err
		}
		schema = &desc
	}

	topK := req.TopK
	if topK == 0 {
		topK = domain.DefaultTopK
	}

	var warnings []string
	hits, err := s.retriever.Retrieve(ctx, question, topK, req.DocumentIDs)
	if err != nil {
		logger.Warn("retrieval failed: %v", err)
		warnings = append(warnings, "retrieval failed: "+err.Error())
		hits = nil
	}

	syn := s.synthesizer.Synthesize(ctx, question, hits, schema, req.UseLLM)

	resp := &domain.QueryResponse{
		Question:      question,
		Answer:        syn.Answer,
		Citations:     syn.Citations,
		Evidence:      syn.Evidence,
		Confidence:    syn.Confidence,
		Structured:    syn.Structured,
		NonConformant: syn.NonConformant,
		Warnings:      append(warnings, syn.Warnings...),
	}

	if s.evaluator != nil {
		input := domain.EvaluationInput{
			Answer:    resp.Answer,
			Citations: resp.Citations,
			Evidence:  resp.Evidence,
		}
		if schema != nil {
			input.Schema = schema.Name
			input.Structured = resp.Structured
		}
		result := s.evaluator.Evaluate(ctx, input)
		resp.Evaluation = &result
	}

	s.metrics.QueryServed(syn.Outcome, time.Since(start))
	return resp, nil
}

// Schemas lists the response schema names Ask accepts.
func (s *QueryService) Schemas() []string {
	if s.schemas == nil {
		return nil
	}
	return s.schemas.Names()
}

func (s *QueryService) lookupSchema(name string) (domain.SchemaDescriptor, error) {
	if s.schemas == nil {
		return domain.SchemaDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, name)
	}
	return s.schemas.Get(name)
}
