// Package metrics exposes Prometheus instrumentation for postcode lookups.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the lookup service collectors on a private registry,
// so tests and multiple servers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Lookups by gRPC method and outcome
	Lookups *prometheus.CounterVec

	// Valid postcodes by shape
	Shapes *prometheus.CounterVec

	// Per-request handling latency by method
	LookupLatency *prometheus.HistogramVec

	// Items per ParseBatch call
	BatchSize prometheus.Histogram
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukpostcode_lookups_total",
			Help: "Total postcode lookups by method and outcome",
		}, []string{"method", "outcome"}),

		Shapes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ukpostcode_shapes_total",
			Help: "Valid postcodes seen by shape",
		}, []string{"shape"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ukpostcode_lookup_duration_seconds",
			Help:    "Duration of lookup requests by method",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method"}),

		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ukpostcode_batch_items",
			Help:    "Number of items per batch request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLookup records one lookup outcome. shape is ignored unless the outcome is valid.
func (m *Metrics) ObserveLookup(method, outcome, shape string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(method, outcome).Inc()
	if outcome == OutcomeValid && shape != "" {
		m.Shapes.WithLabelValues(shape).Inc()
	}
}

// ObserveLatency records request handling time for a method.
func (m *Metrics) ObserveLatency(method string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}

// ObserveBatch records the size of a batch request.
func (m *Metrics) ObserveBatch(items int) {
	if m != nil {
		m.BatchSize.Observe(float64(items))
	}
}
