package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// CSV uploads by outcome (accepted, malformed, too_large, store_error).
	UploadsTotal *prometheus.CounterVec

	// Accepted upload size. Watch for: uploads approaching the configured cap.
	UploadBytes prometheus.Histogram

	// Rows left after filtering, per table. Watch for: filters that routinely return nothing.
	FilterRowsReturned *prometheus.HistogramVec

	// Dataset views per dataset slug.
	DatasetQueriesTotal *prometheus.CounterVec

	// PNG chart render latency per chart kind (trend, dataset).
	ChartRenderDuration *prometheus.HistogramVec

	// Contact form submissions by outcome (accepted, incomplete).
	ContactSubmissionsTotal *prometheus.CounterVec

	// Upload cache errors by operation. Watch for: memcached connectivity.
	CacheErrorsTotal *prometheus.CounterVec

	// Upload cache lookups by result (hit, miss).
	CacheLookupsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: abusive upload/contact traffic.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadsTotal",
			Help: "Total number of publication CSV uploads by result",
		},
		[]string{"result"},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uploadBytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
	FilterRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filterRowsReturned",
			Help:    "Rows remaining after range and keyword filters",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
		},
		[]string{"table"},
	)
	DatasetQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasetQueriesTotal",
			Help: "Total number of STEM dataset views",
		},
		[]string{"dataset"},
	)
	ChartRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartRenderDurationSeconds",
			Help:    "Bar chart PNG render latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"chart"},
	)
	ContactSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactSubmissionsTotal",
			Help: "Total number of contact form submissions by result",
		},
		[]string{"result"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Total number of upload cache errors by operation",
		},
		[]string{"operation"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Total number of upload cache lookups by result",
		},
		[]string{"result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UploadsTotal, UploadBytes,
		FilterRowsReturned, DatasetQueriesTotal,
		ChartRenderDuration,
		ContactSubmissionsTotal,
		CacheErrorsTotal, CacheLookupsTotal,
		RateLimitDeniedTotal,
	)
}

// RecordFilter records the size of a filtered view for the given table label.
func RecordFilter(table string, rows int) {
	FilterRowsReturned.WithLabelValues(table).Observe(float64(rows))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
