package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	SendsTotal      *prometheus.CounterVec
	UploadsTotal    *prometheus.CounterVec
	ThreadsCreated  prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics builds a metrics set on a private registry so tests can
// run servers side by side.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finpartner",
			Name:      "sends_total",
			Help:      "Message sends by outcome.",
		}, []string{"outcome"}),
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finpartner",
			Name:      "uploads_total",
			Help:      "Document uploads by outcome.",
		}, []string{"outcome"}),
		ThreadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finpartner",
			Name:      "threads_created_total",
			Help:      "Threads created via the API.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finpartner",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.SendsTotal, m.UploadsTotal, m.ThreadsCreated, m.RequestDuration)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
