package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcome label values.
const (
	OutcomeCommitted     = "committed"
	OutcomeRoomConflict  = "room_conflict"
	OutcomeTimeConflict  = "time_conflict"
	OutcomeLockTimeout   = "lock_timeout"
	OutcomePersistence   = "persistence_error"
	OutcomeNoRooms       = "no_available_rooms"
	OutcomeClusterFailed = "clustering_failed"
	OutcomeOK            = "ok"
	OutcomeError         = "error"
)

// Metrics holds the Prometheus collectors of the placement engine. Each
// instance owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	BookingOutcomes    *prometheus.CounterVec
	SearchOutcomes     *prometheus.CounterVec
	LockWait           prometheus.Histogram
	SearchDuration     prometheus.Histogram
	ClusteringRestarts prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		BookingOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_commits_total",
				Help:      "Multi-room booking commit attempts by outcome",
			},
			[]string{"outcome"},
		),
		SearchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Room searches by outcome",
			},
			[]string{"outcome"},
		),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_lock_wait_seconds",
			Help:      "Time spent waiting for the booking lock",
			Buckets:   prometheus.DefBuckets,
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end room search duration",
			Buckets:   prometheus.DefBuckets,
		}),
		ClusteringRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clustering_restarts_total",
			Help:      "Clustering runs discarded because a cluster ended up empty",
		}),
	}

	registry.MustRegister(
		m.BookingOutcomes,
		m.SearchOutcomes,
		m.LockWait,
		m.SearchDuration,
		m.ClusteringRestarts,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// The helpers below accept a nil *Metrics so callers without metrics wiring
// (tools, tests) need no special casing.

func (m *Metrics) Booking(outcome string) {
	if m == nil {
		return
	}
	m.BookingOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Search(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.SearchOutcomes.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(seconds)
}

func (m *Metrics) LockWaited(seconds float64) {
	if m == nil {
		return
	}
	m.LockWait.Observe(seconds)
}

func (m *Metrics) ClusteringRestarted() {
	if m == nil {
		return
	}
	m.ClusteringRestarts.Inc()
}
