// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "diarize_client"

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Upload metrics
	UploadsTotal    prometheus.Counter
	UploadsRejected *prometheus.CounterVec
	UploadsFailed   prometheus.Counter
	UploadBytes     prometheus.Counter

	// Poll metrics
	PollsTotal  *prometheus.CounterVec
	PollLatency prometheus.Histogram

	// Lifecycle metrics
	WatchersActive   prometheus.Gauge
	EscalationsTotal *prometheus.CounterVec
	JobsTerminal     *prometheus.CounterVec

	// Result metrics
	ResultFetchTotal  prometheus.Counter
	ResultFetchErrors prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		UploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of upload requests issued",
		}),
		UploadsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Total number of uploads rejected before any network call",
		}, []string{"reason"}),
		UploadsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_failed_total",
			Help:      "Total number of upload requests that failed",
		}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes submitted to the backend",
		}),

		PollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of status checks by classified outcome",
		}, []string{"outcome"}),
		PollLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_latency_seconds",
			Help:      "Status check round-trip latency in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		WatchersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers_active",
			Help:      "Number of currently active poll loops (0 or 1)",
		}),
		EscalationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of failure streaks escalated to a terminal error",
		}, []string{"reason"}),
		JobsTerminal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_terminal_total",
			Help:      "Total number of jobs reaching a terminal status",
		}, []string{"status"}),

		ResultFetchTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_fetch_total",
			Help:      "Total number of result fetches attempted",
		}),
		ResultFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_fetch_errors_total",
			Help:      "Total number of result fetches that failed",
		}),
	}
}

// RecordUpload records an upload request being issued.
func (m *Metrics) RecordUpload(bytes int64) {
	m.UploadsTotal.Inc()
	m.UploadBytes.Add(float64(bytes))
}

// RecordUploadRejected records a local validation rejection.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordUploadFailed records an upload request failure.
func (m *Metrics) RecordUploadFailed() {
	m.UploadsFailed.Inc()
}

// RecordPoll records one classified status check.
func (m *Metrics) RecordPoll(outcome string, latencySeconds float64) {
	m.PollsTotal.WithLabelValues(outcome).Inc()
	m.PollLatency.Observe(latencySeconds)
}

// RecordWatcherStart records a poll loop becoming active.
func (m *Metrics) RecordWatcherStart() {
	m.WatchersActive.Inc()
}

// RecordWatcherStop records a poll loop ending.
func (m *Metrics) RecordWatcherStop() {
	m.WatchersActive.Dec()
}

// RecordEscalation records a failure streak being promoted to terminal error.
func (m *Metrics) RecordEscalation(reason string) {
	m.EscalationsTotal.WithLabelValues(reason).Inc()
}

// RecordTerminal records a job reaching a terminal status.
func (m *Metrics) RecordTerminal(status string) {
	m.JobsTerminal.WithLabelValues(status).Inc()
}

// RecordResultFetch records a result fetch attempt.
func (m *Metrics) RecordResultFetch(err error) {
	m.ResultFetchTotal.Inc()
	if err != nil {
		m.ResultFetchErrors.Inc()
	}
}
