// Package metrics provides Prometheus metrics for the schema registry node.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a node.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	SubjectsTotal  prometheus.Gauge
	SchemasTotal   prometheus.Gauge
	SchemaVersions *prometheus.GaugeVec

	RegistrationsTotal  *prometheus.CounterVec
	CompatibilityChecks *prometheus.CounterVec

	LogAppendLatency prometheus.Histogram
	LogAppendErrors  prometheus.Counter

	ForwardedWritesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_registry_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schema_registry_requests_in_flight",
		Help: "Number of HTTP requests currently being processed",
	})

	m.SubjectsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schema_registry_subjects_total",
		Help: "Total number of subjects",
	})

	m.SchemasTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schema_registry_schemas_total",
		Help: "Total number of distinct registered schemas",
	})

	m.SchemaVersions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schema_registry_schema_versions",
			Help: "Number of versions per subject",
		},
		[]string{"subject"},
	)

	m.RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_registrations_total",
			Help: "Total number of schema registrations",
		},
		[]string{"status"},
	)

	m.CompatibilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_compatibility_checks_total",
			Help: "Total number of compatibility checks",
		},
		[]string{"level", "result"},
	)

	m.LogAppendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schema_registry_log_append_latency_seconds",
		Help:    "Command log append (including fsync) latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.LogAppendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schema_registry_log_append_errors_total",
		Help: "Total number of failed command log appends",
	})

	m.ForwardedWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_forwarded_writes_total",
			Help: "Total number of writes forwarded by a replica to its primary",
		},
		[]string{"operation", "status"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.SubjectsTotal,
		m.SchemasTotal,
		m.SchemaVersions,
		m.RegistrationsTotal,
		m.CompatibilityChecks,
		m.LogAppendLatency,
		m.LogAppendErrors,
		m.ForwardedWritesTotal,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes a URL path to reduce cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/subjects/") && strings.Contains(path, "/versions/"):
		return "/subjects/{subject}/versions/{version}"
	case strings.HasPrefix(path, "/subjects/") && strings.HasSuffix(path, "/versions"):
		return "/subjects/{subject}/versions"
	case strings.HasPrefix(path, "/subjects/"):
		return "/subjects/{subject}"
	case strings.HasPrefix(path, "/schemas/ids/"):
		return "/schemas/ids/{id}"
	case strings.HasPrefix(path, "/config/"):
		return "/config/{subject}"
	case strings.HasPrefix(path, "/compatibility/subjects/"):
		return "/compatibility/subjects/{subject}/versions/{version}"
	}
	return path
}

// RecordRegistration records a schema registration attempt.
func (m *Metrics) RecordRegistration(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.RegistrationsTotal.WithLabelValues(status).Inc()
}

// RecordCompatibilityCheck records a compatibility check result.
func (m *Metrics) RecordCompatibilityCheck(level string, compatible bool) {
	result := "compatible"
	if !compatible {
		result = "incompatible"
	}
	m.CompatibilityChecks.WithLabelValues(level, result).Inc()
}

// RecordLogAppend records a command log append attempt.
func (m *Metrics) RecordLogAppend(duration time.Duration, err error) {
	m.LogAppendLatency.Observe(duration.Seconds())
	if err != nil {
		m.LogAppendErrors.Inc()
	}
}

// RecordForwardedWrite records a replica-to-primary write forward.
func (m *Metrics) RecordForwardedWrite(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ForwardedWritesTotal.WithLabelValues(operation, status).Inc()
}

// UpdateSubjectCount updates the subject count gauge.
func (m *Metrics) UpdateSubjectCount(count float64) {
	m.SubjectsTotal.Set(count)
}

// UpdateSchemaCount updates the distinct schema count gauge.
func (m *Metrics) UpdateSchemaCount(count float64) {
	m.SchemasTotal.Set(count)
}

// UpdateSchemaVersions updates the version-count gauge for one subject.
func (m *Metrics) UpdateSchemaVersions(subject string, count float64) {
	m.SchemaVersions.WithLabelValues(subject).Set(count)
}
