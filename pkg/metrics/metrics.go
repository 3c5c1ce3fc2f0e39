package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus collectors for the engine and its HTTP host.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Engine metrics
	buildsTotal     *prometheus.CounterVec
	buildParams     prometheus.Histogram
	decodesTotal    *prometheus.CounterVec
	payloadBytes    prometheus.Histogram
	fallbacksTotal  *prometheus.CounterVec
	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
	authRequestsTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_expression_builds_total",
				Help: "Total number of dynamic column expressions built",
			},
			[]string{"status"},
		),

		buildParams: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dynattr_expression_params",
				Help:    "Number of bound parameters per built expression",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),

		decodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_payload_decodes_total",
				Help: "Total number of dynamic column payloads decoded",
			},
			[]string{"status"},
		),

		payloadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dynattr_payload_bytes",
				Help:    "Size of decoded dynamic column payloads in bytes",
				Buckets: prometheus.ExponentialBuckets(16, 4, 10),
			},
		),

		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_attribute_access_total",
				Help: "Attribute accesses by operation and where they resolved",
			},
			[]string{"operation", "target"},
		),

		storeOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_store_operations_total",
				Help: "Total number of row store operations",
			},
			[]string{"operation", "status"},
		),

		storeOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynattr_store_operation_duration_seconds",
				Help:    "Row store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynattr_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dynattr_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynattr_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

func status(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordBuild records one expression build
func (m *Metrics) RecordBuild(success bool, params int) {
	if m == nil {
		return
	}
	m.buildsTotal.WithLabelValues(status(success)).Inc()
	if success {
		m.buildParams.Observe(float64(params))
	}
}

// RecordDecode records one payload decode
func (m *Metrics) RecordDecode(success bool, size int) {
	if m == nil {
		return
	}
	m.decodesTotal.WithLabelValues(status(success)).Inc()
	m.payloadBytes.Observe(float64(size))
}

// RecordAccess records whether an attribute access hit a fixed field or the dynamic tree
func (m *Metrics) RecordAccess(operation string, dynamic bool) {
	if m == nil {
		return
	}
	target := "fixed"
	if dynamic {
		target = "dynamic"
	}
	m.fallbacksTotal.WithLabelValues(operation, target).Inc()
}

// RecordStoreOperation records a row store operation
func (m *Metrics) RecordStoreOperation(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeOpsTotal.WithLabelValues(operation, status(success)).Inc()
	m.storeOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAuthRequest records an authentication attempt
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	m.authRequestsTotal.WithLabelValues(status(success)).Inc()
}

// InstrumentHandler wraps a handler with request metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.httpRequestsInFlight.WithLabelValues(method, endpoint).Inc()
		defer m.httpRequestsInFlight.WithLabelValues(method, endpoint).Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware counts requests rejected and accepted by an auth middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return func(h http.Handler) http.Handler {
		passed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RecordAuthRequest(true)
			h.ServeHTTP(w, r)
		})
		guarded := next(passed)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			guarded.ServeHTTP(rw, r)
			if rw.statusCode == http.StatusUnauthorized {
				m.RecordAuthRequest(false)
			}
		})
	}
}

// responseWriter captures the status code written by a handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
