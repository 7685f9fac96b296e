package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converse_http_requests_total",
			Help: "Total number of HTTP requests processed by the converse service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "converse_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	directorySearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converse_directory_searches_total",
			Help: "Total number of user directory searches, by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	genaiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converse_genai_calls_total",
			Help: "Total number of generative model calls, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	genaiCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "converse_genai_call_duration_seconds",
			Help:    "Generative model call latencies in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "converse_rate_limited_total",
			Help: "Total number of requests rejected by the per-user rate limit.",
		},
		[]string{"route"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "converse_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		directorySearchesTotal,
		genaiCallsTotal,
		genaiCallDuration,
		rateLimitedTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// IncDirectorySearch records a directory search by mode ("browse"/"search")
// and outcome ("ok"/"error").
func IncDirectorySearch(mode, outcome string) {
	directorySearchesTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveGenAICall records one generative model call.
func ObserveGenAICall(kind, outcome string, elapsed time.Duration) {
	genaiCallsTotal.WithLabelValues(kind, outcome).Inc()
	genaiCallDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncRateLimited records a rejected request.
func IncRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}

// IncAMQPPublishError records a failed audit publish.
func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
