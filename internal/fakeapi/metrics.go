package fakeapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	nbfakeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nbfake_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	nbfakeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nbfake_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	nbfakeTokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nbfake_tokens_issued_total",
		Help: "Total access tokens issued.",
	})

	nbfakeAuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nbfake_auth_failures_total",
		Help: "Total rejected authentications by stage.",
	}, []string{"stage"})
)

// prometheusMiddleware records per-request metrics.
func prometheusMiddleware() gin.HandlerFunc {
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

		nbfakeRequestsTotal.WithLabelValues(method, path, status).Inc()
		nbfakeRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// metricsHandler serves Prometheus metrics.
func metricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordTokenIssued() {
	nbfakeTokensIssuedTotal.Inc()
}

// recordAuthFailure counts a rejection at stage "token_exchange" or "access_token".
func recordAuthFailure(stage string) {
	nbfakeAuthFailuresTotal.WithLabelValues(stage).Inc()
}
