// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the streaming coordination layer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the confab server.
type Metrics struct {
	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec

	// Ingest metrics
	ChunksIngestedTotal *prometheus.CounterVec
	UploadBytesTotal    prometheus.Counter

	// Collaborator metrics
	TranscriptionSeconds     *prometheus.HistogramVec
	TranscriptionErrorsTotal prometheus.Counter
	AnalysisSeconds          *prometheus.HistogramVec
	AnalysisFailuresTotal    *prometheus.CounterVec

	// Fan-out metrics
	EventsPublishedTotal *prometheus.CounterVec
	SubscribersActive    prometheus.Gauge
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of server metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confab_sessions_active",
				Help: "Current number of live sessions in the store",
			},
		),
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confab_sessions_total",
				Help: "Total sessions created, by ingest mode",
			},
			[]string{"mode"},
		),
		ChunksIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confab_chunks_ingested_total",
				Help: "Audio chunks received, by dedupe outcome",
			},
			[]string{"outcome"},
		),
		UploadBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "confab_upload_bytes_total",
				Help: "Total bytes accepted through file upload",
			},
		),
		TranscriptionSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confab_transcription_seconds",
				Help:    "Transcription collaborator call latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"path"},
		),
		TranscriptionErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "confab_transcription_errors_total",
				Help: "Transcription collaborator failures",
			},
		),
		AnalysisSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confab_analysis_seconds",
				Help:    "Text analysis collaborator call latency per facet",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"facet"},
		),
		AnalysisFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confab_analysis_failures_total",
				Help: "Isolated analysis failures per facet",
			},
			[]string{"facet"},
		),
		EventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confab_events_published_total",
				Help: "Update events fanned out to subscribers, by event type",
			},
			[]string{"event"},
		),
		SubscribersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confab_subscribers_active",
				Help: "Currently connected push subscribers",
			},
		),
	}
}
