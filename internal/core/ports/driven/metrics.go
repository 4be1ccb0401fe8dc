package driven

import (
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// Query outcomes reported to MetricsRecorder.
const (
	OutcomeAnswered   = "answered"
	OutcomeFallback   = "fallback"
	OutcomeNoEvidence = "no_evidence"
	OutcomeRejected   = "rejected"
)

// MetricsRecorder receives operational measurements from core services.
type MetricsRecorder interface {
	QueryServed(outcome string, elapsed time.Duration)
	LLMFallback(reason string)
	DocumentIngested(status domain.DocumentStatus)
	EvaluationRecorded(passed bool)
	IndexRows(n int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) QueryServed(string, time.Duration) {}
func (NopMetrics) LLMFallback(string) {}
func (NopMetrics) DocumentIngested(domain.DocumentStatus) {}
func (NopMetrics) EvaluationRecorded(bool) {}
func (NopMetrics) IndexRows(int) {}
