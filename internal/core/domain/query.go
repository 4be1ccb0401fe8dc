package domain

import "unicode/utf8"

// Query limits.
const (
	MinTopK          = 1
	MaxTopK          = 20
	DefaultTopK      = 5
	MaxAnswerLength  = 2000
	SnippetLength    = 240
	ConfidenceTopN   = 3
	NoEvidenceAnswer = "No relevant documents found."
	snippetEllipsis  = "..."
)

// ClampTopK bounds top_k to the supported range.
func ClampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// Citation points from an answer back to a specific evidence chunk.
type Citation struct {
	DocumentID string   `json:"doc_id" yaml:"doc_id"`
	Filename   string   `json:"filename,omitempty" yaml:"filename,omitempty"`
	Page       int      `json:"page" yaml:"page"`
	ChunkID    string   `json:"chunk_id,omitempty" yaml:"chunk_id,omitempty"`
	Score      *float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// EvidenceItem is a retrieved chunk surfaced to the caller.
type EvidenceItem struct {
	DocumentID string  `json:"doc_id" yaml:"doc_id"`
	Filename   string  `json:"filename" yaml:"filename"`
	Page       int     `json:"page" yaml:"page"`
	ChunkID    string  `json:"chunk_id" yaml:"chunk_id"`
	Score      float64 `json:"score" yaml:"score"`
	Snippet    string  `json:"snippet" yaml:"snippet"`

	// Text is the full chunk text. It feeds the evaluation harness and is
	// not rendered by the JSON boundary layers.
	Text string `json:"-" yaml:"text"`
}

// Snippet truncates text to SnippetLength characters plus an ellipsis.
func Snippet(text string) string {
	if utf8.RuneCountInString(text) <= SnippetLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:SnippetLength]) + snippetEllipsis
}

// TruncateAnswer limits an answer to MaxAnswerLength characters.
func TruncateAnswer(answer string) string {
	if utf8.RuneCountInString(answer) <= MaxAnswerLength {
		return answer
	}
	return string([]rune(answer)[:MaxAnswerLength])
}

// CitationFromHit builds a citation for a search hit.
func CitationFromHit(hit SearchHit) Citation {
	score := hit.Score
	return Citation{
		DocumentID: hit.Metadata.DocumentID,
		Filename:   hit.Metadata.Filename,
		Page:       hit.Metadata.Page,
		ChunkID:    hit.Metadata.ChunkID,
		Score:      &score,
	}
}

// EvidenceFromHit builds an evidence item for a search hit.
func EvidenceFromHit(hit SearchHit) EvidenceItem {
	return EvidenceItem{
		DocumentID: hit.Metadata.DocumentID,
		Filename:   hit.Metadata.Filename,
		Page:       hit.Metadata.Page,
		ChunkID:    hit.Metadata.ChunkID,
		Score:      hit.Score,
		Snippet:    Snippet(hit.Metadata.Text),
		Text:       hit.Metadata.Text,
	}
}

// QueryRequest is a natural-language question against the corpus.
type QueryRequest struct {
	// Question is the free-text question. Must not be empty.
	Question string `json:"question"`

	// TopK is the number of chunks to retrieve (1..20, default 5).
	TopK int `json:"top_k"`

	// DocumentIDs restricts retrieval to these documents when non-empty.
	DocumentIDs []string `json:"doc_ids,omitempty"`

	// UseLLM enables the language model. When false the answer is the
	// concatenated evidence.
	UseLLM bool `json:"use_llm"`

	// Schema names a registered response schema.
	Schema string `json:"response_schema,omitempty"`
}

// QueryResponse is the final answer to a question.
type QueryResponse struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Citations  []Citation     `json:"citations"`
	Evidence   []EvidenceItem `json:"evidence"`
	Confidence float64        `json:"confidence"`

	// Structured is the parsed schema payload when a schema was requested
	// and the model output conformed.
	Structured map[string]any `json:"structured,omitempty"`

	// NonConformant is set when a schema was requested but the model
	// output did not parse as that schema.
	NonConformant bool `json:"non_conformant,omitempty"`

	// Warnings lists degradations such as LLM fallback.
	Warnings []string `json:"warnings,omitempty"`

	// Evaluation is the advisory quality verdict.
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
}

// Confidence returns the mean score of the first ConfidenceTopN hits, or 0.
func Confidence(hits []SearchHit) float64 {
	n := len(hits)
	if n > ConfidenceTopN {
		n = ConfidenceTopN
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, h := range hits[:n] {
		sum += h.Score
	}
	return sum / float64(n)
}
