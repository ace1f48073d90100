// Package metrics provides Prometheus metrics for the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	BackendOperations     *prometheus.CounterVec
	BusPublications       *prometheus.CounterVec
	RealtimeSubscriptions prometheus.Gauge
	RequestDuration       *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		BackendOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_backend_operations_total",
				Help: "Table operations by table, operation and result.",
			},
			[]string{"table", "operation", "result"},
		),
		BusPublications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_bus_publications_total",
				Help: "Notification bus publications by topic.",
			},
			[]string{"topic"},
		),
		RealtimeSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "curiosity_realtime_subscriptions",
				Help: "Open realtime change subscriptions.",
			},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curiosity_http_request_duration_seconds",
				Help:    "HTTP request duration by route pattern and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
		registry: registry,
	}

	registry.MustRegister(m.BackendOperations)
	registry.MustRegister(m.BusPublications)
	registry.MustRegister(m.RealtimeSubscriptions)
	registry.MustRegister(m.RequestDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordBackendOperation(table, operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BackendOperations.WithLabelValues(table, operation, result).Inc()
}

func (m *Metrics) RecordPublication(topic string) {
	if m == nil {
		return
	}
	m.BusPublications.WithLabelValues(topic).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.RealtimeSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.RealtimeSubscriptions.Dec()
}

func (m *Metrics) ObserveRequest(route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(duration.Seconds())
}
