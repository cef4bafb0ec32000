package observ

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts HTTP requests by route and status.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records request latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// MessagesPersisted counts messages written to history, by type.
	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_persisted_total",
			Help: "Total number of messages written to channel history",
		},
		[]string{"type"},
	)

	// MessagesBroadcast counts newMessage events fanned out to rooms.
	MessagesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_broadcast_total",
			Help: "Total number of messages broadcast to socket rooms",
		},
	)

	// OpenConnections tracks live WebSocket connections.
	OpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_open_connections",
			Help: "Number of currently open WebSocket connections",
		},
	)
)

// HTTPMetrics is a gin middleware recording request count and latency.
// It labels by the route template (c.FullPath), not the raw URL, so
// /v1/channels/:id stays one series regardless of the id.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the prometheus registry, mounted at /metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
