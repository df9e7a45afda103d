// Package observability exposes pipeline metrics to Prometheus and sets up
// OpenTelemetry tracing over OTLP.
//
// Prometheus will scrape the Recorder's handler and see data like:
//
//	# TYPE chronorag_stage_duration_seconds histogram
//	chronorag_stage_duration_seconds_bucket{stage="retrieve",outcome="ok",le="0.1"} 12
//
//	# TYPE chronorag_candidate_pool_size histogram
//	chronorag_candidate_pool_size_bucket{strategy="mmr",kind="eligible",le="16"} 9
package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calque-ai/go-chronorag/pkg/query"
	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder records pipeline metrics into a Prometheus registry.
//
// It satisfies retrieval.Observer and query.Observer so the same value can
// be handed to the retrievers and the analyzer.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	requests      *prometheus.CounterVec
	poolSize      *prometheus.HistogramVec
	analyses      *prometheus.CounterVec
}

var (
	_ retrieval.Observer = (*Recorder)(nil)
	_ query.Observer     = (*Recorder)(nil)
)

type recorderConfig struct {
	namespace       string
	registry        *prometheus.Registry
	durationBuckets []float64
	runtime         bool
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

// WithNamespace sets the metric name prefix. Default: "chronorag".
func WithNamespace(ns string) RecorderOption {
	return func(c *recorderConfig) { c.namespace = ns }
}

// WithRegistry records into an existing registry.
func WithRegistry(r *prometheus.Registry) RecorderOption {
	return func(c *recorderConfig) { c.registry = r }
}

// WithDurationBuckets sets the stage duration histogram buckets, in seconds.
func WithDurationBuckets(buckets []float64) RecorderOption {
	return func(c *recorderConfig) { c.durationBuckets = buckets }
}

// WithoutRuntimeMetrics skips the Go and process collectors.
func WithoutRuntimeMetrics() RecorderOption {
	return func(c *recorderConfig) { c.runtime = false }
}

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors unless disabled.
//
// Example:
//
//	rec := observability.NewRecorder()
//	http.Handle("/metrics", rec.Handler())
func NewRecorder(opts ...RecorderOption) *Recorder {
	cfg := recorderConfig{
		namespace: "chronorag",
		// model calls dominate, so buckets reach into tens of seconds
		durationBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		runtime:         true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: cfg.registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   cfg.durationBuckets,
		}, []string{"stage", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "requests_total",
			Help:      "Answered questions by query type and outcome.",
		}, []string{"query_type", "outcome"}),
		poolSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "candidate_pool_size",
			Help:      "Candidates fetched, eligible for ranking and selected per retrieval.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"strategy", "kind"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "query_analyses_total",
			Help:      "Query analysis outcomes; fallbacks carry a reason.",
		}, []string{"outcome", "reason"}),
	}

	r.registry.MustRegister(r.stageDuration, r.requests, r.poolSize, r.analyses)
	if cfg.runtime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// ObserveStage records how long stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	r.stageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

// ObserveRequest counts one answered question.
func (r *Recorder) ObserveRequest(queryType query.Type, err error) {
	qt := string(queryType)
	if qt == "" {
		qt = "unknown"
	}
	r.requests.WithLabelValues(qt, outcome(err)).Inc()
}

// ObservePool records the candidate pool sizes of one retrieval.
func (r *Recorder) ObservePool(strategy retrieval.Strategy, fetched, eligible, selected int) {
	s := string(strategy)
	r.poolSize.WithLabelValues(s, "fetched").Observe(float64(fetched))
	r.poolSize.WithLabelValues(s, "eligible").Observe(float64(eligible))
	r.poolSize.WithLabelValues(s, "selected").Observe(float64(selected))
}

// ObserveAnalysis counts a parse outcome.
func (r *Recorder) ObserveAnalysis(o query.Outcome, reason string) {
	r.analyses.WithLabelValues(o.String(), reasonLabel(reason)).Inc()
}

// Handler returns the scrape endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// reasonLabel keeps label cardinality bounded; decoder messages are dropped.
func reasonLabel(reason string) string {
	switch {
	case reason == "":
		return "none"
	case reason == query.ReasonNoJSON:
		return "no_json"
	case reason == query.ReasonMissingField:
		return "missing_field"
	case strings.HasPrefix(reason, query.ReasonInvalidJSON):
		return "invalid_json"
	default:
		return "other"
	}
}
