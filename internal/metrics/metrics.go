package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the recorder. The detached
// post-stop pipeline is not observable to HTTP callers, so its outcomes are
// surfaced here and through logs.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Pipeline metrics
	PipelineOutcomesTotal *prometheus.CounterVec
	EncodeDuration        prometheus.Histogram

	// Archival metrics
	UploadFallbacksTotal prometheus.Counter

	// Best-effort collaborator failures (persist, notify)
	CollaboratorFailuresTotal *prometheus.CounterVec
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_sessions_active",
			Help: "Number of sessions currently holding capture resources",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_total",
			Help: "Total number of sessions started",
		}),
		PipelineOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recorder_pipeline_outcomes_total",
				Help: "Total number of finished post-stop pipelines by outcome",
			},
			[]string{"outcome"},
		),
		EncodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_encode_duration_seconds",
			Help:    "Duration of the transcode stage in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		UploadFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recorder_upload_fallbacks_total",
			Help: "Total number of artifacts degraded to a local-path reference",
		}),
		CollaboratorFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recorder_collaborator_failures_total",
				Help: "Total number of best-effort persist/notify failures",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.PipelineOutcomesTotal,
		m.EncodeDuration,
		m.UploadFallbacksTotal,
		m.CollaboratorFailuresTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
