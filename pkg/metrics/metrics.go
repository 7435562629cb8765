package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	SlotsAllocated      prometheus.Counter
	AllocationFailures  prometheus.Counter
	ExcludedDaysSkipped prometheus.Counter
	WraparoundConflicts prometheus.Counter
	AllocationLatency   prometheus.Histogram

	// Session metrics
	SessionsCompleted prometheus.Counter

	// Outbox metrics
	OutboxEventsProcessed prometheus.Counter
	OutboxEventsFailed    prometheus.Counter
	OutboxRetries         *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SlotsAllocated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_allocated_total",
			Help:      "Total number of session slots created by the allocator",
		}),
		AllocationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_failures_total",
			Help:      "Total number of allocation batches aborted by a storage failure",
		}),
		ExcludedDaysSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "excluded_days_skipped_total",
			Help:      "Total number of Sundays and holidays skipped during allocation",
		}),
		WraparoundConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wraparound_conflicts_total",
			Help:      "Total number of slots placed back at the day anchor after the cutoff",
		}),
		AllocationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_duration_seconds",
			Help:      "Time spent allocating a batch of slots",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions marked completed",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of outbox events that failed publishing",
		}),
		OutboxRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
