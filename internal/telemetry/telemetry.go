// Package telemetry exposes Prometheus collectors for the audit service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_audits_total",
			Help: "Total number of audit requests processed, labeled by tier and outcome.",
		},
		[]string{"tier", "status"},
	)

	auditDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditor_audit_duration_seconds",
			Help:    "Histogram of end-to-end audit durations, labeled by tier.",
			Buckets: []float64{0.05, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"tier"},
	)

	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_cache_operations_total",
			Help: "Total cache operations, labeled by operation and result.",
		},
		[]string{"op", "result"},
	)

	rateLimitRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter, labeled by scope.",
		},
		[]string{"scope"},
	)

	emailSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_email_sends_total",
			Help: "Total report email attempts, labeled by status.",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// ObserveAudit records one finished audit run.
func ObserveAudit(tier, status string, duration time.Duration) {
	if tier == "" {
		tier = "unknown"
	}
	auditsTotal.WithLabelValues(tier, status).Inc()
	if duration > 0 {
		auditDurationSeconds.WithLabelValues(tier).Observe(duration.Seconds())
	}
}

// ObserveCacheOp records a cache operation outcome (hit, miss, corrupt, ...).
func ObserveCacheOp(op, result string) {
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}

// ObserveRateLimitReject records a rejected request for the given scope
// ("ip" or "email").
func ObserveRateLimitReject(scope string) {
	rateLimitRejectsTotal.WithLabelValues(scope).Inc()
}

// ObserveEmailSend records one report email attempt.
func ObserveEmailSend(status string) {
	emailSendsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records request metrics for the HTTP middleware.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
