package domain

// Evaluation thresholds and weights.
const (
	CoveragePassThreshold     = 0.5
	HallucinationPassCeiling  = 0.5
	ClaimSentenceMinLength    = 20
	HallucinationCheckLength  = 50
	UnsupportedTermsThreshold = 0.3
	WeightFaithfulness        = 0.4
	WeightGrounding           = 0.3
	WeightSchema              = 0.3
)

// EvaluationInput is everything the harness scores.
type EvaluationInput struct {
	// Answer is the produced answer text.
	Answer string `json:"answer" yaml:"answer"`

	// Citations are the answer's provenance pointers.
	Citations []Citation `json:"citations" yaml:"citations"`

	// Evidence is the retrieved material the answer should be grounded in.
	Evidence []EvidenceItem `json:"evidence" yaml:"evidence"`

	// Schema optionally names the structured schema the response must satisfy.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`

	// Structured is the parsed structured payload, when a schema is named.
	Structured map[string]any `json:"structured,omitempty" yaml:"structured,omitempty"`

	// Response is the generic response object checked when no schema is named.
	// Nil means the response is built from Answer, Citations and Evidence.
	Response map[string]any `json:"response,omitempty" yaml:"response,omitempty"`
}

// FaithfulnessResult scores how well the answer is backed by evidence.
type FaithfulnessResult struct {
	Passed           bool    `json:"passed"`
	CitationCoverage float64 `json:"citation_coverage"`
	WordOverlap      float64 `json:"word_overlap"`
	HasClaims        bool    `json:"has_claims"`
	Score            float64 `json:"score"`
}

// HallucinationResult scores answer sentences unsupported by evidence.
type HallucinationResult struct {
	Score            float64  `json:"score"`
	Sentences        int      `json:"sentences"`
	FlaggedSentences []string `json:"flagged_sentences,omitempty"`
}

// SchemaValidationResult reports structural compliance of the response.
type SchemaValidationResult struct {
	Valid  bool     `json:"valid"`
	Schema string   `json:"schema,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// EvaluationResult is the quality gate verdict for an answer.
type EvaluationResult struct {
	Passed        bool                   `json:"passed"`
	Faithfulness  FaithfulnessResult     `json:"faithfulness"`
	Hallucination HallucinationResult    `json:"hallucination"`
	Schema        SchemaValidationResult `json:"schema"`
	OverallScore  float64                `json:"overall_score"`
	Error         string                 `json:"error,omitempty"`
}

// FailedEvaluation is the worst-case verdict used when scoring itself fails.
func FailedEvaluation(reason string) EvaluationResult {
	return EvaluationResult{
		Passed:        false,
		Hallucination: HallucinationResult{Score: 1},
		Schema:        SchemaValidationResult{Valid: false, Errors: []string{reason}},
		Error:         reason,
	}
}

// OverallScore combines the sub-scores with the fixed weights.
func OverallScore(faithfulness, hallucination float64, schemaValid bool) float64 {
	schema := 0.0
	if schemaValid {
		schema = 1.0
	}
	return WeightFaithfulness*faithfulness + WeightGrounding*(1-hallucination) + WeightSchema*schema
}

// EvaluationCase is one regression case, typically read from a YAML file.
type EvaluationCase struct {
	Name  string          `json:"name" yaml:"name"`
	Input EvaluationInput `json:"input" yaml:",inline"`

	// ExpectPass, when set, must match the verdict.
	ExpectPass *bool `json:"expect_pass,omitempty" yaml:"expect_pass,omitempty"`
}

// CaseOutcome pairs a case with its verdict.
type CaseOutcome struct {
	Name   string           `json:"name"`
	Result EvaluationResult `json:"result"`

	// Matched is false when ExpectPass was set and disagrees with the verdict.
	Matched bool `json:"matched"`
}
