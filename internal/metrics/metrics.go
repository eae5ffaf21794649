package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deepsea_http_in_flight_requests",
		Help: "Current number of in-flight HTTP requests.",
	})

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepsea_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepsea_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	authEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepsea_auth_events_total",
			Help: "Authentication events by type and outcome.",
		},
		[]string{"event", "outcome"},
	)

	nameCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deepsea_name_cache_hits_total",
		Help: "Department and job title name lookups served from cache.",
	})

	nameCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deepsea_name_cache_misses_total",
		Help: "Department and job title name lookups that went to the store.",
	})
)

// AuthEvent counts one login, refresh, logout or guard outcome.
func AuthEvent(event, outcome string) {
	authEvents.WithLabelValues(event, outcome).Inc()
}

// NameCacheHit records a cache hit.
func NameCacheHit() { nameCacheHits.Inc() }

// NameCacheMiss records a cache miss.
func NameCacheMiss() { nameCacheMisses.Inc() }

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
