// Package ecsmetrics provides Prometheus instrumentation for the ECS core,
// following the registerer-injection pattern used elsewhere in this
// project's lineage: collectors are built once and registered against
// whatever prometheus.Registerer the embedder supplies, or a private
// registry scoped to a single call, or none at all for tests.
package ecsmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the ECS core records against.
type Metrics struct {
	// Registry is the private registry New built and registered against,
	// for embedders that want to expose it on their own scrape endpoint.
	// It is nil when the collectors were built via NewWithRegistry.
	Registry *prometheus.Registry

	EntitiesAlive  prometheus.Gauge
	TickDuration   prometheus.Histogram
	SystemDuration *prometheus.HistogramVec
	SystemErrors   *prometheus.CounterVec
	EventsEmitted  *prometheus.CounterVec
	EventsDropped  prometheus.Counter
}

// New creates Metrics registered against a private prometheus.Registry
// scoped to this call, so each call (e.g. one per World) can coexist in
// the same process without a duplicate-registration panic against the
// global DefaultRegisterer. Access the registry via Metrics.Registry to
// expose it on a scrape endpoint.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	m.Registry = registry
	return m
}

// NewWithRegistry creates Metrics and registers them against registerer.
// A nil registerer is tolerated: the collectors are still constructed and
// usable, just never exposed to a scrape endpoint. Passing
// prometheus.DefaultRegisterer is the caller's choice to make (and the
// caller's responsibility to call at most once per process); New avoids
// that pitfall by always using a private registry instead.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntitiesAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecs_entities_alive",
			Help: "Number of currently live entities.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecs_tick_duration_seconds",
			Help:    "Duration of a full World.Tick call.",
			Buckets: prometheus.DefBuckets,
		}),
		SystemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecs_system_duration_seconds",
			Help:    "Duration of a single system's Update call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"system"}),
		SystemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_system_errors_total",
			Help: "Count of SystemExecutionFailure occurrences, by system.",
		}, []string{"system"}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_events_emitted_total",
			Help: "Count of events emitted onto the bus, by event type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecs_events_dropped_total",
			Help: "Count of events dropped because MaxEventCascadeDepth was exceeded.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.EntitiesAlive,
			m.TickDuration,
			m.SystemDuration,
			m.SystemErrors,
			m.EventsEmitted,
			m.EventsDropped,
		)
	}

	return m
}
