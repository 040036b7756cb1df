package rag

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the request metrics of the orchestrator, kept in their own registry.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	retrieved prometheus.Histogram
}

// NewMetrics creates and registers the orchestrator metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medrag_requests_total",
				Help: "Total number of answered requests by policy and outcome",
			},
			[]string{"policy", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medrag_request_duration_seconds",
				Help:    "Duration of answering a request by policy",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"policy"},
		),
		retrieved: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "medrag_retrieved_chunks",
				Help:    "Number of chunks retrieved per request",
				Buckets: []float64{0, 1, 2, 3, 5, 10},
			},
		),
	}
	m.registry.MustRegister(m.requests, m.duration, m.retrieved)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(policy PolicyName, outcome string, trace *Trace) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(policy), outcome).Inc()
	m.duration.WithLabelValues(string(policy)).Observe(time.Since(trace.Started).Seconds())
	if trace.RetrievedChunks >= 0 {
		m.retrieved.Observe(float64(trace.RetrievedChunks))
	}
}
