// Package metrics exposes the Prometheus instruments of the pipeline.
//
// Usage:
//
//	metrics.RecordAdapterRun("news", true, 1200*time.Millisecond)
//	metrics.RecordRetry("news")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdapterRunsTotal counts adapter runs by outcome (success, failure).
	AdapterRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendradar_adapter_runs_total",
			Help: "Total number of source adapter runs",
		},
		[]string{"adapter", "outcome"},
	)

	// AdapterRetriesTotal counts retried adapter attempts.
	AdapterRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendradar_adapter_retries_total",
			Help: "Total number of retried adapter attempts",
		},
		[]string{"adapter"},
	)

	// AdapterDuration tracks wall time per adapter run including retries.
	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendradar_adapter_duration_seconds",
			Help:    "Duration of source adapter runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"adapter"},
	)

	// SignalsCollectedTotal counts normalized signals by origin.
	SignalsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendradar_signals_collected_total",
			Help: "Total number of normalized signals",
		},
		[]string{"adapter", "origin"},
	)

	// PipelineRunsTotal counts scheduled pipeline runs by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendradar_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)

	// RisingSignals is the number of rising signals in the last run.
	RisingSignals = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendradar_rising_signals",
			Help: "Number of rising signals in the most recent run",
		},
	)
)

// RecordAdapterRun records one finished adapter run.
func RecordAdapterRun(adapter string, ok bool, d time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	AdapterRunsTotal.WithLabelValues(adapter, outcome).Inc()
	AdapterDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

// RecordSignals adds n collected signals for adapter and origin.
func RecordSignals(adapter, origin string, n int) {
	SignalsCollectedTotal.WithLabelValues(adapter, origin).Add(float64(n))
}

// RecordRetry records one retried attempt.
func RecordRetry(adapter string) {
	AdapterRetriesTotal.WithLabelValues(adapter).Inc()
}

// RecordPipelineRun records a pipeline run and its rising count.
func RecordPipelineRun(ok bool, rising int) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	PipelineRunsTotal.WithLabelValues(outcome).Inc()
	if ok {
		RisingSignals.Set(float64(rising))
	}
}
