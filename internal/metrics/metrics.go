// Package metrics bundles Prometheus collectors for the batch pipeline
// and serve mode. A nil *Metrics is a valid no-op receiver, so callers
// never branch on whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline collectors on a dedicated registry.
type Metrics struct {
	Registry            *prometheus.Registry
	RowsProcessed       prometheus.Counter
	RowsSucceeded       prometheus.Counter
	RowsFailed          prometheus.Counter
	FallbackCalls       prometheus.Counter
	RemoteScoreFailures prometheus.Counter
	CheckpointSaves     prometheus.Counter
	RowDuration         prometheus.Histogram
	RequestsTotal       *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	rowsProcessed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_rows_processed_total",
			Help: "Total rows the batch pipeline picked up.",
		},
	)
	rowsSucceeded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_rows_succeeded_total",
			Help: "Total rows that produced a scoring result.",
		},
	)
	rowsFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_rows_failed_total",
			Help: "Total rows recorded as failed result entries.",
		},
	)
	fallbackCalls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_fallback_invocations_total",
			Help: "Total model-assisted fallback resolutions attempted.",
		},
	)
	remoteFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_remote_scoring_failures_total",
			Help: "Total remote scoring calls that fell back to the local engine.",
		},
	)
	checkpointSaves := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscore_checkpoint_saves_total",
			Help: "Total batch state checkpoints persisted.",
		},
	)
	rowDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscore_row_duration_seconds",
			Help:    "Wall-clock time spent processing one row.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscore_requests_total",
			Help: "Total scoring API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	registry.MustRegister(rowsProcessed, rowsSucceeded, rowsFailed,
		fallbackCalls, remoteFailures, checkpointSaves, rowDuration, requests)

	return &Metrics{
		Registry:            registry,
		RowsProcessed:       rowsProcessed,
		RowsSucceeded:       rowsSucceeded,
		RowsFailed:          rowsFailed,
		FallbackCalls:       fallbackCalls,
		RemoteScoreFailures: remoteFailures,
		CheckpointSaves:     checkpointSaves,
		RowDuration:         rowDuration,
		RequestsTotal:       requests,
	}
}

// IncProcessed increments the processed rows counter.
func (m *Metrics) IncProcessed() {
	if m == nil {
		return
	}
	m.RowsProcessed.Inc()
}

// IncSucceeded increments the succeeded rows counter.
func (m *Metrics) IncSucceeded() {
	if m == nil {
		return
	}
	m.RowsSucceeded.Inc()
}

// IncFailed increments the failed rows counter.
func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.RowsFailed.Inc()
}

// IncFallback increments the fallback invocation counter.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.FallbackCalls.Inc()
}

// IncRemoteFailure increments the remote scoring failure counter.
func (m *Metrics) IncRemoteFailure() {
	if m == nil {
		return
	}
	m.RemoteScoreFailures.Inc()
}

// IncCheckpointSave increments the checkpoint save counter.
func (m *Metrics) IncCheckpointSave() {
	if m == nil {
		return
	}
	m.CheckpointSaves.Inc()
}

// ObserveRowDuration records one row's processing time.
func (m *Metrics) ObserveRowDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RowDuration.Observe(d.Seconds())
}

// IncRequest increments the API request counter for an endpoint.
func (m *Metrics) IncRequest(endpoint string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint).Inc()
}
