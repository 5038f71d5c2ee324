package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons for http_requests_rejected_total.
const (
	RejectRateLimited = "rate_limited"
	RejectTimeout     = "timeout"
	RejectTooLarge    = "too_large"
)

// initHTTPMetrics initializes HTTP API metrics.
func (m *Manager) initHTTPMetrics(cfg Config) {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: cfg.HTTPDurationBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Requests currently being served, including websocket tails",
		},
	)

	m.httpRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_rejected_total",
			Help: "Requests refused for rate, time or size limits",
		},
		[]string{"path", "reason"},
	)

	m.registry.MustRegister(m.httpRequests)
	m.registry.MustRegister(m.httpDuration)
	m.registry.MustRegister(m.httpConnections)
	m.registry.MustRegister(m.httpRejected)
}

// RecordHTTPRequest records one finished request. path must be a route
// pattern, not a raw URL, to keep label cardinality bounded.
func (m *Manager) RecordHTTPRequest(ctx context.Context, method, path, status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	observe(ctx, m.httpDuration.WithLabelValues(method, path), duration.Seconds())

	if reason := rejectReason(status); reason != "" {
		m.httpRejected.WithLabelValues(path, reason).Inc()
	}
}

// rejectReason maps statuses that refuse a request onto a reason label.
func rejectReason(status string) string {
	code, err := strconv.Atoi(status)
	if err != nil {
		return ""
	}
	switch code {
	case http.StatusTooManyRequests:
		return RejectRateLimited
	case http.StatusGatewayTimeout:
		return RejectTimeout
	case http.StatusRequestEntityTooLarge:
		return RejectTooLarge
	default:
		return ""
	}
}

// IncActiveConnections increments the active HTTP connections count.
func (m *Manager) IncActiveConnections() {
	if !m.Enabled() {
		return
	}
	m.httpConnections.Inc()
}

// DecActiveConnections decrements the active HTTP connections count.
func (m *Manager) DecActiveConnections() {
	if !m.Enabled() {
		return
	}
	m.httpConnections.Dec()
}
