// Package metrics provides Prometheus metrics for the codec service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the codec service.
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Schema metrics
	SchemasTotal  prometheus.Gauge
	ParsesTotal   *prometheus.CounterVec
	ParseDuration prometheus.Histogram

	// Codec metrics
	EncodesTotal *prometheus.CounterVec
	DecodesTotal *prometheus.CounterVec
	PayloadBytes *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "protodyn_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "protodyn_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.SchemasTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "protodyn_schemas_total",
			Help: "Number of registered schemas",
		},
	)

	m.ParsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_parses_total",
			Help: "Total number of schema parses",
		},
		[]string{"status"},
	)

	m.ParseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "protodyn_parse_duration_seconds",
			Help:    "Schema parse latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.EncodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_encodes_total",
			Help: "Total number of message encodes",
		},
		[]string{"status"},
	)

	m.DecodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_decodes_total",
			Help: "Total number of message decodes",
		},
		[]string{"status"},
	)

	m.PayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "protodyn_payload_bytes",
			Help:    "Size of encoded payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{"direction"},
	)

	m.CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	m.CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protodyn_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.SchemasTotal,
		m.ParsesTotal,
		m.ParseDuration,
		m.EncodesTotal,
		m.DecodesTotal,
		m.PayloadBytes,
		m.CacheHits,
		m.CacheMisses,
	)

	return m
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint itself
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

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes a URL path to reduce label cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/schemas/") && strings.HasSuffix(path, "/encode"):
		return "/schemas/{schema}/messages/{message}/encode"
	case strings.HasPrefix(path, "/schemas/") && strings.HasSuffix(path, "/decode"):
		return "/schemas/{schema}/messages/{message}/decode"
	case strings.HasPrefix(path, "/schemas/") && strings.Contains(path, "/messages/"):
		return "/schemas/{schema}/messages/{message}"
	case strings.HasPrefix(path, "/schemas/"):
		return "/schemas/{schema}"
	}
	return path
}

// RecordParse records a schema parse attempt.
func (m *Metrics) RecordParse(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ParsesTotal.WithLabelValues(status).Inc()
	m.ParseDuration.Observe(duration.Seconds())
}

// RecordEncode records a message encode.
func (m *Metrics) RecordEncode(size int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EncodesTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.PayloadBytes.WithLabelValues("encode").Observe(float64(size))
	}
}

// RecordDecode records a message decode.
func (m *Metrics) RecordDecode(size int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.DecodesTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.PayloadBytes.WithLabelValues("decode").Observe(float64(size))
	}
}

// RecordCacheAccess records a cache access.
func (m *Metrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// UpdateSchemaCount updates the registered schema gauge.
func (m *Metrics) UpdateSchemaCount(count float64) {
	m.SchemasTotal.Set(count)
}
