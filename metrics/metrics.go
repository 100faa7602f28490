// Package metrics provides Prometheus metrics for the prescriptions API.
// It exports HTTP request metrics along with catalog and document counters:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - http_response_size_bytes: Histogram with method and path labels
//   - catalog_entries: Gauge with the size of the catalog being served
//   - catalog_cache_lookups_total: Counter with result label (hit, miss)
//   - documents_rendered_total: Counter with format and status labels
//
// All metrics are registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size, PDF exports dominate the upper buckets",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"method", "path"},
	)

	CatalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_entries",
			Help: "Number of entries in the drug catalog currently served",
		},
	)

	CatalogCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog builds answered from the content cache (hit) or parsed (miss)",
		},
		[]string{"result"},
	)

	DocumentsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_rendered_total",
			Help: "Prescription documents rendered by format",
		},
		[]string{"format", "status"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (clients seen since the last cleanup)",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(HTTPResponseSize)
	prometheus.MustRegister(CatalogEntries)
	prometheus.MustRegister(CatalogCacheLookups)
	prometheus.MustRegister(DocumentsRendered)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}
