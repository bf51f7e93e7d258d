// Package metrics exposes Prometheus counters for the Sentinel pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the Sentinel engine.
// Counters live on a dedicated registry so independent instances never
// collide. All methods are nil-safe so callers can pass a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal        *prometheus.CounterVec
	InvalidRequestsTotal prometheus.Counter
	StoreWriteErrors     prometheus.Counter
	ChainWriteErrors     prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_analyses_total",
			Help: "Total number of completed analyses by decision",
		}, []string{"decision"}),
		InvalidRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_invalid_requests_total",
			Help: "Total number of requests rejected for missing required fields",
		}),
		StoreWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_store_write_errors_total",
			Help: "Total number of operational store write failures",
		}),
		ChainWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_chain_write_errors_total",
			Help: "Total number of audit chain write failures",
		}),
	}
}

// Registry returns the underlying registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncAnalysis counts one completed analysis for the given decision.
func (m *Metrics) IncAnalysis(decision string) {
	if m != nil {
		m.AnalysesTotal.WithLabelValues(decision).Inc()
	}
}

// IncInvalidRequest counts one rejected request.
func (m *Metrics) IncInvalidRequest() {
	if m != nil {
		m.InvalidRequestsTotal.Inc()
	}
}

// IncStoreWriteError counts one operational store failure.
func (m *Metrics) IncStoreWriteError() {
	if m != nil {
		m.StoreWriteErrors.Inc()
	}
}

// IncChainWriteError counts one audit chain failure.
func (m *Metrics) IncChainWriteError() {
	if m != nil {
		m.ChainWriteErrors.Inc()
	}
}
