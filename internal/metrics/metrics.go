// Package metrics provides Prometheus instrumentation for the lait ledger.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lait",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// OrdersTotal counts order transitions by direction and resulting status.
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "orders_total",
			Help:      "Total order state transitions by direction and status.",
		},
		[]string{"direction", "status"},
	)

	// EscrowBalance tracks the custody balance per asset in base units.
	EscrowBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lait",
			Name:      "escrow_balance",
			Help:      "Current escrow balance per asset in base units.",
		},
		[]string{"asset"},
	)

	// FeesCollectedTotal counts fees collected per asset in base units.
	FeesCollectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "fees_collected_total",
			Help:      "Total fees collected per asset in base units.",
		},
		[]string{"asset"},
	)

	// LimitDenialsTotal counts order rejections due to the daily fiat cap.
	LimitDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "limit_denials_total",
			Help:      "Total order creations rejected by the daily limit.",
		},
	)

	// TransferFailuresTotal counts failed external value transfers.
	TransferFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "transfer_failures_total",
			Help:      "Total external value transfers that failed.",
		},
	)

	// ActiveWebSocketClients tracks connected realtime stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lait",
			Name:      "websocket_clients",
			Help:      "Number of connected realtime stream clients.",
		},
	)

	// AuditEventsTotal counts emitted audit events by kind.
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lait",
			Name:      "audit_events_total",
			Help:      "Total audit events emitted by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers all collectors on the given registry.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		OrdersTotal,
		EscrowBalance,
		FeesCollectedTotal,
		LimitDenialsTotal,
		TransferFailuresTotal,
		ActiveWebSocketClients,
		AuditEventsTotal,
	)
}

// Handler returns the /metrics endpoint handler for the registry.
func Handler(reg *prometheus.Registry) gin.HandlerFunc {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware instruments HTTP requests with count and latency metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
