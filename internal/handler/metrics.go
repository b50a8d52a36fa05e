package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domainverify/domainverify/internal/challenge"
	"github.com/domainverify/domainverify/internal/verification"
)

var (
	dvRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dv_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	dvRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dv_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	dvChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dv_verification_checks_total",
		Help: "Total verification proof checks by method and resulting status.",
	}, []string{"method", "status"})

	dvWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dv_webhook_deliveries_total",
		Help: "Total webhook deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		dvRequestsTotal.WithLabelValues(method, path, status).Inc()
		dvRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordVerificationCheck records the outcome of a proof check. Wired into
// the verification service as its metrics callback.
func RecordVerificationCheck(method challenge.Method, status verification.Status) {
	dvChecksTotal.WithLabelValues(string(method), string(status)).Inc()
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		dvWebhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		dvWebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
