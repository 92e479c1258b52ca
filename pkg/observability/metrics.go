package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Write path metrics
	EventsWrittenTotal  *prometheus.CounterVec
	WriteDuration       prometheus.Histogram
	DegradedWritesTotal prometheus.Counter

	// Query path metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Isolation metrics
	IsolationDenialsTotal prometheus.Counter

	// Pruning metrics
	PruneRunsTotal    *prometheus.CounterVec
	EventsPrunedTotal prometheus.Counter
	PruneDuration     prometheus.Histogram

	// Store metrics
	StoreErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audittrail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audittrail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		EventsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audittrail_events_written_total",
				Help: "Total number of audit events written",
			},
			[]string{"action", "severity"},
		),
		WriteDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audittrail_write_duration_seconds",
				Help:    "Audit event write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DegradedWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audittrail_degraded_writes_total",
				Help: "Writes that returned a degraded record instead of failing",
			},
		),

		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audittrail_queries_total",
				Help: "Total number of audit queries by chosen index",
			},
			[]string{"index"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audittrail_query_duration_seconds",
				Help:    "Audit query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"index"},
		),

		IsolationDenialsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audittrail_isolation_denials_total",
				Help: "Lookups dropped by the tenant isolation guard",
			},
		),

		PruneRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audittrail_prune_runs_total",
				Help: "Total number of retention prune runs",
			},
			[]string{"status"},
		),
		EventsPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audittrail_events_pruned_total",
				Help: "Total number of audit events removed by pruning",
			},
		),
		PruneDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audittrail_prune_duration_seconds",
				Help:    "Retention prune run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),

		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audittrail_store_errors_total",
				Help: "Total number of key-value store errors",
			},
			[]string{"operation"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsWrittenTotal,
		m.WriteDuration,
		m.DegradedWritesTotal,
		m.QueriesTotal,
		m.QueryDuration,
		m.IsolationDenialsTotal,
		m.PruneRunsTotal,
		m.EventsPrunedTotal,
		m.PruneDuration,
		m.StoreErrorsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
