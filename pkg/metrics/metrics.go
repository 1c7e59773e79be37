package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "eje"

var (
	// LeaseAcquireTotal counts acquire attempts by outcome (acquired, held, error).
	LeaseAcquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_acquire_total",
		Help:      "Total number of lease acquire attempts by outcome",
	}, []string{"outcome"})
	// LeaseReleaseTotal counts release attempts by outcome (released, error).
	LeaseReleaseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_release_total",
		Help:      "Total number of lease release attempts by outcome",
	}, []string{"outcome"})
	// LeaseVerifyTotal counts fencing checks by result (valid, stale).
	LeaseVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_verify_total",
		Help:      "Total number of lease fencing checks by result",
	}, []string{"result"})
	// LeaseStuckClearedTotal counts leases force-cleared by the admin sweep.
	LeaseStuckClearedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_stuck_cleared_total",
		Help:      "Total number of expired leases cleared in bulk",
	})
	// EventsPublishedTotal counts domain events by type and outcome.
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of domain events published by type and outcome",
	}, []string{"type", "outcome"})
	// HTTPRequestDuration observes request latency by method and status.
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)

const (
	OutcomeAcquired = "acquired"
	OutcomeHeld     = "held"
	OutcomeReleased = "released"
	OutcomeError    = "error"
	OutcomeSent     = "sent"
	OutcomeDropped  = "dropped"
	ResultValid     = "valid"
	ResultStale     = "stale"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// Register registers the service metrics on the provided registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		LeaseAcquireTotal,
		LeaseReleaseTotal,
		LeaseVerifyTotal,
		LeaseStuckClearedTotal,
		EventsPublishedTotal,
		HTTPRequestDuration,
	)
}
