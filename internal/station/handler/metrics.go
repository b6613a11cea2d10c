package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	hubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrohub_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	hubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydrohub_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	hubLedgerEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hydrohub_ledger_entries",
		Help: "Current number of entries in the audit ledger.",
	})

	hubLedgerIntact = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hydrohub_ledger_intact",
		Help: "1 if the last audit chain verification found no discrepancies, else 0.",
	})

	hubLedgerAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrohub_ledger_appends_total",
		Help: "Total audit ledger entries appended by action tag.",
	}, []string{"action_tag"})

	hubLowStockItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hydrohub_low_stock_items",
		Help: "Number of inventory items at or below the low-stock threshold.",
	})
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

		hubRequestsTotal.WithLabelValues(method, path, status).Inc()
		hubRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerAppend records one appended audit entry.
func RecordLedgerAppend(actionTag string) {
	hubLedgerAppendsTotal.WithLabelValues(actionTag).Inc()
}

// SetLedgerEntries sets the audit ledger size gauge.
func SetLedgerEntries(count float64) {
	hubLedgerEntries.Set(count)
}

// SetLedgerIntact records the outcome of the latest chain verification.
func SetLedgerIntact(intact bool) {
	if intact {
		hubLedgerIntact.Set(1)
	} else {
		hubLedgerIntact.Set(0)
	}
}

// SetLowStockItems sets the low-stock item count gauge.
func SetLowStockItems(count float64) {
	hubLowStockItems.Set(count)
}
