package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Context formatting.
const (
	contextDelimiter = "\n---\n"
	fallbackJoin     = "\n\n"

	breakerName        = "llm"
	breakerFailures    = 5
	breakerOpenTimeout = 30 * time.Second
)

// Synthesis is the answer produced from ranked evidence.
type Synthesis struct {
	Answer        string
	Citations     []domain.Citation
	Evidence      []domain.EvidenceItem
	Confidence    float64
	Structured    map[string]any
	NonConformant bool
	Warnings      []string

	// Outcome is one of the driven.Outcome* values.
	Outcome string
}

// Synthesizer composes answers from evidence, calling the LLM when one is
// available and degrading to an evidence digest when it is not.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	schemas driven.SchemaRegistry
	metrics driven.MetricsRecorder

	timeout time.Duration
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithPromptStore sets where prompt templates are loaded from.
func WithPromptStore(store driven.PromptStore) SynthesizerOption {
	return func(s *Synthesizer) {
		s.prompts = store
	}
}

// WithSchemaRegistry enables validation of structured answers.
func WithSchemaRegistry(reg driven.SchemaRegistry) SynthesizerOption {
	return func(s *Synthesizer) {
		s.schemas = reg
	}
}

// WithSynthesizerMetrics sets the metrics recorder.
func WithSynthesizerMetrics(m driven.MetricsRecorder) SynthesizerOption {
	return func(s *Synthesizer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLLMTimeout bounds each LLM call.
func WithLLMTimeout(d time.Duration) SynthesizerOption {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLLMRateLimit limits LLM calls per second. Zero means unlimited.
func WithLLMRateLimit(perSecond float64) SynthesizerOption {
	return func(s *Synthesizer) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

// WithLLMConcurrency bounds in-flight LLM calls.
func WithLLMConcurrency(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewSynthesizer creates a synthesizer. llm may be nil.
func NewSynthesizer(llm driven.LLMService, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		llm:     llm,
		metrics: driven.NopMetrics{},
		timeout: domain.DefaultLLMTimeout,
		sem:     semaphore.NewWeighted(domain.DefaultLLMConcurrency),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    breakerName,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return s
}

// HasLLM reports whether a language model is configured.
func (s *Synthesizer) HasLLM() bool {
	return s.llm != nil
}

// Synthesize answers question from hits. It never fails: a missing or
// failing LLM yields the evidence digest plus a warning.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	question string,
	hits []domain.SearchHit,
	schema *domain.SchemaDescriptor,
	useLLM bool,
) Synthesis {
	if len(hits) == 0 {
		return Synthesis{
			Answer:    domain.NoEvidenceAnswer,
			Citations: []domain.Citation{},
			Evidence:  []domain.EvidenceItem{},
			Outcome:   driven.OutcomeNoEvidence,
		}
	}

	out := Synthesis{
		Citations:  make([]domain.Citation, len(hits)),
		Evidence:   make([]domain.EvidenceItem, len(hits)),
		Confidence: domain.Confidence(hits),
		Outcome:    driven.OutcomeAnswered,
	}
	for i, h := range hits {
		out.Citations[i] = domain.CitationFromHit(h)
		out.Evidence[i] = domain.EvidenceFromHit(h)
	}

	switch {
	case !useLLM:
		out.Answer = FallbackAnswer(hits)
	case s.llm == nil:
		s.fallback(&out, hits, "no language model configured")
	default:
		opts := driven.GenerateOptions{}
		if schema != nil {
			opts.JSON = true
			opts.Schema = schema.Document
		}
		raw, err := s.generate(ctx, s.buildPrompt(question, hits, schema), opts)
		if err != nil {
			s.fallback(&out, hits, reason(err))
			break
		}
		out.Answer = raw
		if schema != nil {
			s.applySchema(&out, raw, schema)
		}
	}

	out.Answer = domain.TruncateAnswer(out.Answer)
	return out
}

// FallbackAnswer renders the top evidence as "[Page N] text" blocks.
func FallbackAnswer(hits []domain.SearchHit) string {
	n := min(len(hits), domain.ConfidenceTopN)
	parts := make([]string, n)
	for i, h := range hits[:n] {
		parts[i] = fmt.Sprintf("[Page %d] %s", h.Metadata.Page, h.Metadata.Text)
	}
	return strings.Join(parts, fallbackJoin)
}

// BuildContext joins page-tagged evidence in rank order.
func BuildContext(hits []domain.SearchHit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[Page %d]\n%s\n", h.Metadata.Page, h.Metadata.Text)
	}
	return strings.Join(parts, contextDelimiter)
}

func (s *Synthesizer) buildPrompt(question string, hits []domain.SearchHit, schema *domain.SchemaDescriptor) string {
	prompt := strings.NewReplacer(
		"{{question}}", question,
		"{{context}}", BuildContext(hits),
	).Replace(s.template(driven.PromptGroundedAnswer))

	if schema != nil {
		prompt += strings.ReplaceAll(s.template(driven.PromptSchemaInstructions), "{{schema}}", string(schema.Document))
	}
	return prompt
}

func (s *Synthesizer) template(name string) string {
	if s.prompts != nil {
		if t, err := s.prompts.Load(name); err == nil && t != "" {
			return t
		}
	}
	return driven.DefaultPrompts()[name]
}

// generate runs one LLM call behind the limiter, semaphore, breaker and timeout.
func (s *Synthesizer) generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit wait: %w", domain.ErrRateLimited, err)
		}
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire llm slot: %w", err)
	}
	defer s.sem.Release(1)

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.llm.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(res.(string))
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrLLMUnavailable)
	}
	return text, nil
}

func (s *Synthesizer) fallback(out *Synthesis, hits []domain.SearchHit, why string) {
	out.Answer = FallbackAnswer(hits)
	out.Outcome = driven.OutcomeFallback
	out.Warnings = append(out.Warnings, "LLM unavailable ("+why+"); answer assembled from retrieved evidence")
	s.metrics.LLMFallback(why)
	logger.Debug("synthesizer fallback: %s", why)
}

func (s *Synthesizer) applySchema(out *Synthesis, raw string, schema *domain.SchemaDescriptor) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		out.NonConformant = true
		out.Warnings = append(out.Warnings, "response is not valid JSON for schema "+schema.Name)
		return
	}

	if s.schemas != nil {
		violations, err := s.schemas.Validate(schema.Name, payload)
		if err != nil || len(violations) > 0 {
			out.NonConformant = true
			out.Warnings = append(out.Warnings, "response does not conform to schema "+schema.Name)
			return
		}
	}
	out.Structured = payload
}

// stripCodeFence removes a surrounding ```json fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit open"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited"
	default:
		return "error"
	}
}
