package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Business metrics
	EventsLoggedTotal     *prometheus.CounterVec
	EventQueriesTotal     *prometheus.CounterVec
	RejectedRequestsTotal *prometheus.CounterVec
	RateLimitedTotal      prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditlog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlog_storage_operations_total",
				Help: "Total number of event store operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditlog_storage_operation_duration_seconds",
				Help:    "Event store operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		EventsLoggedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlog_events_logged_total",
				Help: "Total number of audit events recorded",
			},
			[]string{"event_type"},
		),
		EventQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlog_event_queries_total",
				Help: "Total number of event queries by access path",
			},
			[]string{"access_path"},
		),
		RejectedRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditlog_rejected_requests_total",
				Help: "Total number of requests rejected as invalid input",
			},
			[]string{"reason"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auditlog_rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.EventsLoggedTotal,
		m.EventQueriesTotal,
		m.RejectedRequestsTotal,
		m.RateLimitedTotal,
	)

	return m
}

// The recording helpers below are safe to call on a nil *Metrics.

// RecordEventLogged counts a successfully recorded event
func (m *Metrics) RecordEventLogged(eventType string) {
	if m == nil {
		return
	}
	m.EventsLoggedTotal.WithLabelValues(eventType).Inc()
}

// RecordQuery counts a query dispatched to the given access path
func (m *Metrics) RecordQuery(accessPath string) {
	if m == nil {
		return
	}
	m.EventQueriesTotal.WithLabelValues(accessPath).Inc()
}

// RecordRejected counts a request rejected for reason
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.RejectedRequestsTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimited counts a request refused by the rate limiter
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// ObserveStorageOperation records the outcome and latency of a store call started at start
func (m *Metrics) ObserveStorageOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled by their mux route template to keep cardinality bounded.
// A nil metrics passes requests through untouched.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
