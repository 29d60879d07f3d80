// internal/utils/metrics.go
package utils

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RetryAttempts  *prometheus.CounterVec
	RetryWait      prometheus.Histogram
	ImageFallbacks prometheus.Counter
	ImageFailures  *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	LLMDuration    *prometheus.HistogramVec
	APIRequests    *prometheus.CounterVec
	APIDuration    *prometheus.HistogramVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}

// NewMetrics creates and registers a fresh set of collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_retry_attempts_total",
			Help: "Throttled calls that were retried after a backoff wait",
		}, []string{"operation"}),
		RetryWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronicle_retry_wait_seconds",
			Help:    "Backoff waits before a retry",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		ImageFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronicle_image_fallbacks_total",
			Help: "Image requests that fell back to the standard model after a 403",
		}),
		ImageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_image_failures_total",
			Help: "Scene images omitted because generation failed",
		}, []string{"reason"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_turns_total",
			Help: "Completed turns by outcome",
		}, []string{"result"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chronicle_llm_request_duration_seconds",
			Help:    "Story provider latency including retries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"provider"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_api_requests_total",
			Help: "HTTP API requests",
		}, []string{"method", "path", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chronicle_api_request_duration_seconds",
			Help:    "HTTP API latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(
		m.RetryAttempts, m.RetryWait, m.ImageFallbacks, m.ImageFailures,
		m.Turns, m.LLMDuration, m.APIRequests, m.APIDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRetry records one backoff wait for operation.
func (m *Metrics) RecordRetry(operation string, wait time.Duration) {
	m.RetryAttempts.WithLabelValues(operation).Inc()
	m.RetryWait.Observe(wait.Seconds())
}

// RecordImageFallback counts a switch to the standard image model.
func (m *Metrics) RecordImageFallback() {
	m.ImageFallbacks.Inc()
}

// RecordImageFailure counts an omitted illustration.
func (m *Metrics) RecordImageFailure(reason string) {
	m.ImageFailures.WithLabelValues(reason).Inc()
}

// RecordTurn counts a finished turn; result is "ok" or an error type.
func (m *Metrics) RecordTurn(result string) {
	m.Turns.WithLabelValues(result).Inc()
}

// RecordLLMRequest records the latency of one story request.
func (m *Metrics) RecordLLMRequest(provider string, duration time.Duration) {
	m.LLMDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAPIRequest records metrics for an API request
func (m *Metrics) RecordAPIRequest(path, method string, statusCode int, duration time.Duration) {
	m.APIRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.APIDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
