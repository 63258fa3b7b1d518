// Package metrics holds the Prometheus collectors for the service. They are
// registered on the default registry at init and exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieku_http_requests_total",
			Help: "Total number of HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieku_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movieku_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Metadata provider

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieku_provider_requests_total",
			Help: "Total number of metadata provider calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // "success", "not_found", "failure", "rejected"
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieku_provider_request_duration_seconds",
			Help:    "Metadata provider call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movieku_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieku_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Catalog

	TitlesSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieku_titles_synced_total",
			Help: "Titles inserted from the metadata provider",
		},
		[]string{"mode"}, // "single", "bulk"
	)

	WatchEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieku_watch_events_total",
			Help: "Watch events recorded, repeats included",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderCall records one call to the metadata provider.
func RecordProviderCall(endpoint, outcome string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}
