// Package metrics provides Prometheus instrumentation for the insertion queue.
package metrics

import (
	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StatusSource is anything that can report a queue snapshot
type StatusSource interface {
	Status() jobs.Snapshot
}

// Metrics holds the queue collectors
type Metrics struct {
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	StoreLatency  prometheus.Histogram
}

// New creates the collectors and registers them on reg. The submitted
// counter and the depth and active gauges read from source on scrape.
func New(reg prometheus.Registerer, source StatusSource) *Metrics {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "cinestack_jobs_submitted_total",
		Help: "Total number of jobs submitted to the insertion queue.",
	}, func() float64 {
		return float64(source.Status().Submitted)
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cinestack_queue_depth",
		Help: "Jobs waiting in the insertion queue.",
	}, func() float64 {
		return float64(source.Status().QueueDepth)
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cinestack_queue_active",
		Help: "Whether the drain loop is running (1=draining, 0=idle).",
	}, func() float64 {
		if source.Status().Active {
			return 1
		}
		return 0
	})

	return &Metrics{
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinestack_jobs_completed_total",
			Help: "Total number of jobs persisted successfully.",
		}),

		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinestack_jobs_failed_total",
			Help: "Total number of jobs that failed to persist.",
		}),

		StoreLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinestack_job_store_seconds",
			Help:    "Time spent persisting one job.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}
}

// ObserveOutcome records a finished job; it satisfies jobs.OutcomeHook
func (m *Metrics) ObserveOutcome(o jobs.Outcome) {
	switch o.Status {
	case jobs.StatusCompleted:
		m.JobsCompleted.Inc()
	case jobs.StatusFailed:
		m.JobsFailed.Inc()
	}
	m.StoreLatency.Observe(o.Duration.Seconds())
}
