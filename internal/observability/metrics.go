package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	transitionsRefused *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojt_requests_total",
			Help: "Total number of OJT API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ojt_latency_seconds",
			Help:    "Latency distribution for OJT API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojt_errors_total",
			Help: "Total number of error responses returned by OJT endpoints.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojt_workflow_transitions_total",
			Help: "Committed workflow transitions by entity type.",
		}, []string{"entity_type", "transition"})

		transitionsRefused = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojt_workflow_transitions_refused_total",
			Help: "Workflow transitions refused by the verification step.",
		}, []string{"entity_type", "reason"})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal, transitionsTotal, transitionsRefused)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// Transitions exposes the counter for committed workflow transitions.
func Transitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// TransitionsRefused exposes the counter for refused transitions.
func TransitionsRefused() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsRefused
}
