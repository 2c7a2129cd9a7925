// Package metrics holds the Prometheus collectors of the seat lock engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "seatlock"

var (
	// LockOperations counts lock manager calls by operation and outcome.
	LockOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_operations_total",
			Help:      "Counter of seat lock operations.",
		}, []string{"op", "outcome"})

	StatusBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_batch_size",
			Help:      "Number of seats read per status request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		})

	// StatusDegraded counts seats reported through the fail policy because
	// the lease store could not be read.
	StatusDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_degraded_total",
			Help:      "Counter of unreadable seats served through the status fail policy.",
		})

	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Counter of seat notifications by topic and delivery outcome.",
		}, []string{"topic", "outcome"})

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Counter of seat notifications dropped before delivery.",
		})
)

func init() {
	prometheus.MustRegister(LockOperations)
	prometheus.MustRegister(StatusBatchSize)
	prometheus.MustRegister(StatusDegraded)
	prometheus.MustRegister(Events)
	prometheus.MustRegister(EventsDropped)
}
