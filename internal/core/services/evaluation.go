package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/core/ports/driving"
)

// Ensure EvaluationService implements the interface.
var _ driving.EvaluationService = (*EvaluationService)(nil)

// Generic response fields checked when no schema is named.
var requiredResponseFields = []string{"answer", "citations"}

// EvaluationService scores answers with lexical faithfulness and
// hallucination heuristics plus schema validation.
type EvaluationService struct {
	schemas driven.SchemaRegistry
	metrics driven.MetricsRecorder
}

// NewEvaluationService creates an evaluation service. schemas may be nil,
// in which case any named schema fails validation.
func NewEvaluationService(schemas driven.SchemaRegistry, metrics driven.MetricsRecorder) *EvaluationService {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &EvaluationService{schemas: schemas, metrics: metrics}
}

// Evaluate scores input. It never fails; any internal error produces the
// fail-closed verdict.
func (s *EvaluationService) Evaluate(_ context.Context, input domain.EvaluationInput) (result domain.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.FailedEvaluation(fmt.Sprintf("evaluation panicked: %v", r))
		}
		s.metrics.EvaluationRecorded(result.Passed)
	}()

	evidenceWords := wordSet(evidenceText(input.Evidence))

	faith := CheckFaithfulness(input.Answer, input.Citations, input.Evidence, evidenceWords)
	hall := CheckHallucination(input.Answer, evidenceWords)

	schema, err := s.checkSchema(input)
	if err != nil {
		return domain.FailedEvaluation(err.Error())
	}

	return domain.EvaluationResult{
		Passed:        faith.Passed && hall.Score < domain.HallucinationPassCeiling && schema.Valid,
		Faithfulness:  faith,
		Hallucination: hall,
		Schema:        schema,
		OverallScore:  domain.OverallScore(faith.Score, hall.Score, schema.Valid),
	}
}

// CheckFaithfulness measures citation coverage and word overlap.
func CheckFaithfulness(
	answer string,
	citations []domain.Citation,
	evidence []domain.EvidenceItem,
	evidenceWords map[string]struct{},
) domain.FaithfulnessResult {
	evidenceIDs := make(map[string]struct{})
	for _, e := range evidence {
		if e.ChunkID != "" {
			evidenceIDs[e.ChunkID] = struct{}{}
		}
	}
	covered := make(map[string]struct{})
	for _, c := range citations {
		if _, ok := evidenceIDs[c.ChunkID]; ok && c.ChunkID != "" {
			covered[c.ChunkID] = struct{}{}
		}
	}
	coverage := float64(len(covered)) / float64(max(len(evidenceIDs), 1))

	answerWords := wordSet(answer)
	shared := 0
	for w := range answerWords {
		if _, ok := evidenceWords[w]; ok {
			shared++
		}
	}
	overlap := float64(shared) / float64(max(len(answerWords), 1))

	hasClaims := len(strings.Split(answer, ".")) > 2

	return domain.FaithfulnessResult{
		Passed:           coverage >= domain.CoveragePassThreshold && (!hasClaims || len(citations) > 0),
		CitationCoverage: coverage,
		WordOverlap:      overlap,
		HasClaims:        hasClaims,
		Score:            0.5*coverage + 0.5*overlap,
	}
}

// CheckHallucination flags long sentences whose words are mostly absent
// from the evidence. Sentence lengths are counted in runes.
func CheckHallucination(answer string, evidenceWords map[string]struct{}) domain.HallucinationResult {
	var sentences []string
	for _, part := range strings.Split(strings.ToLower(answer), ".") {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > domain.ClaimSentenceMinLength {
			sentences = append(sentences, part)
		}
	}

	var flagged []string
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) <= domain.HallucinationCheckLength {
			continue
		}
		words := strings.Fields(sentence)
		unsupported := 0
		for w := range wordSet(sentence) {
			if _, ok := evidenceWords[w]; !ok {
				unsupported++
			}
		}
		if float64(unsupported) > float64(len(words))*domain.UnsupportedTermsThreshold {
			flagged = append(flagged, sentence)
		}
	}

	score := float64(len(flagged)) / float64(max(len(sentences), 1))
	return domain.HallucinationResult{
		Score:            min(score, 1.0),
		Sentences:        len(sentences),
		FlaggedSentences: flagged,
	}
}

func (s *EvaluationService) checkSchema(input domain.EvaluationInput) (domain.SchemaValidationResult, error) {
	if input.Schema != "" {
		if s.schemas == nil {
			return domain.SchemaValidationResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, input.Schema)
		}
		if input.Structured == nil {
			return domain.SchemaValidationResult{
				Schema: input.Schema,
				Errors: []string{"no structured payload"},
			}, nil
		}
		violations, err := s.schemas.Validate(input.Schema, input.Structured)
		if err != nil {
			return domain.SchemaValidationResult{}, err
		}
		return domain.SchemaValidationResult{
			Valid:  len(violations) == 0,
			Schema: input.Schema,
			Errors: violations,
		}, nil
	}

	response := input.Response
	if response == nil {
		response = map[string]any{
			"answer":    input.Answer,
			"citations": input.Citations,
			"evidence":  input.Evidence,
		}
	}

	var errs []string
	for _, field := range requiredResponseFields {
		if _, ok := response[field]; !ok {
			errs = append(errs, "missing field: "+field)
		}
	}
	if !nonEmpty(response["evidence"]) && !nonEmpty(response["citations"]) {
		errs = append(errs, "response carries no evidence or citations")
	}
	return domain.SchemaValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// EvaluateCases scores every case.
func (s *EvaluationService) EvaluateCases(ctx context.Context, cases []domain.EvaluationCase) []domain.CaseOutcome {
	out := make([]domain.CaseOutcome, len(cases))
	for i, c := range cases {
		res := s.Evaluate(ctx, c.Input)
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("case-%d", i+1)
		}
		out[i] = domain.CaseOutcome{
			Name:    name,
			Result:  res,
			Matched: c.ExpectPass == nil || *c.ExpectPass == res.Passed,
		}
	}
	return out
}

func evidenceText(evidence []domain.EvidenceItem) string {
	parts := make([]string, len(evidence))
	for i, e := range evidence {
		parts[i] = e.Text
		if parts[i] == "" {
			parts[i] = e.Snippet
		}
	}
	return strings.Join(parts, " ")
}

// wordSet returns the unique whitespace-separated lowercase words of text.
func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func nonEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return false
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	default:
		return true
	}
}
