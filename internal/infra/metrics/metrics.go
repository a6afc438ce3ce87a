// Package metrics exposes prometheus collectors for identity operations and route
// guard decisions. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whiskey"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	registry          *prometheus.Registry
	sessionOperations *prometheus.CounterVec
	guardDecisions    *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Identity operations performed by the session store.",
		}, []string{"operation", "outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard decisions by kind.",
		}, []string{"decision"}),
	}

	m.registry.MustRegister(
		m.sessionOperations,
		m.guardDecisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSessionOperation(operation, outcome string) {
	if m == nil {
		return
	}

	m.sessionOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveGuardDecision(decision string) {
	if m == nil {
		return
	}

	m.guardDecisions.WithLabelValues(decision).Inc()
}
