// Package metrics defines the Prometheus instrumentation for the install
// pipeline. Collectors are registered on the default registry; an embedding
// program decides whether and where to expose them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DownloadsTotal counts payload fetches by source and outcome.
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spoolsmith",
			Subsystem: "fetch",
			Name:      "downloads_total",
			Help:      "Total number of payload fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// CacheHitsTotal counts payload cache lookups that returned a verified
	// payload without a download.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spoolsmith",
			Subsystem: "fetch",
			Name:      "cache_hits_total",
			Help:      "Total number of verified payload cache hits",
		},
	)

	// VerifyFailuresTotal counts digest mismatches detected anywhere in
	// the pipeline.
	VerifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spoolsmith",
			Subsystem: "integrity",
			Name:      "verify_failures_total",
			Help:      "Total number of payload digest mismatches",
		},
	)

	// ExtractedBytesTotal counts bytes written by archive extraction.
	ExtractedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spoolsmith",
			Subsystem: "extract",
			Name:      "bytes_total",
			Help:      "Total bytes written by archive extraction",
		},
	)

	// StepDuration observes per-step wall time by step and terminal state.
	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spoolsmith",
			Subsystem: "install",
			Name:      "step_duration_seconds",
			Help:      "Duration of install steps in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"step", "state"},
	)

	// JobsTotal counts completed install jobs by result.
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spoolsmith",
			Subsystem: "install",
			Name:      "jobs_total",
			Help:      "Total number of install jobs by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		DownloadsTotal,
		CacheHitsTotal,
		VerifyFailuresTotal,
		ExtractedBytesTotal,
		StepDuration,
		JobsTotal,
	)
}

// ObserveStep records one terminal step outcome.
func ObserveStep(step, state string, elapsed time.Duration) {
	StepDuration.WithLabelValues(step, state).Observe(elapsed.Seconds())
}
