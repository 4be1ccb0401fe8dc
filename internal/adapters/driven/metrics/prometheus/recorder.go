// Package prometheus records service measurements as Prometheus metrics.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder holds the docintel metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	QueriesTotal     *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	LLMFallbacks     *prometheus.CounterVec
	IngestionsTotal  *prometheus.CounterVec
	EvaluationsTotal *prometheus.CounterVec
	IndexRowsGauge   prometheus.Gauge
}

// NewRecorder creates and registers all metrics, plus the Go runtime and
// process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_queries_total",
				Help: "Total number of questions answered, by outcome",
			},
			[]string{"outcome"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docintel_query_duration_seconds",
				Help:    "Duration of question answering in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		LLMFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_llm_fallbacks_total",
				Help: "Total number of answers that fell back to evidence snippets",
			},
			[]string{"reason"},
		),
		IngestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_ingestions_total",
				Help: "Total number of processed documents, by final status",
			},
			[]string{"status"},
		),
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_evaluations_total",
				Help: "Total number of evaluated answers, by pass/fail",
			},
			[]string{"passed"},
		),
		IndexRowsGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docintel_index_rows",
				Help: "Number of rows in the vector index",
			},
		),
	}
}

// QueryServed records an answered question.
func (r *Recorder) QueryServed(outcome string, elapsed time.Duration) {
	r.QueriesTotal.WithLabelValues(outcome).Inc()
	r.QueryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// LLMFallback records a degraded answer.
func (r *Recorder) LLMFallback(reason string) {
	r.LLMFallbacks.WithLabelValues(reason).Inc()
}

// DocumentIngested records a document reaching a final state.
func (r *Recorder) DocumentIngested(status domain.DocumentStatus) {
	r.IngestionsTotal.WithLabelValues(string(status)).Inc()
}

// EvaluationRecorded records an evaluation verdict.
func (r *Recorder) EvaluationRecorded(passed bool) {
	r.EvaluationsTotal.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

// IndexRows sets the current index size.
func (r *Recorder) IndexRows(n int) {
	r.IndexRowsGauge.Set(float64(n))
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
