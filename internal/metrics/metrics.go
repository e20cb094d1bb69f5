// Package metrics provides Prometheus instrumentation for the Strata platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "strata",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TenantResolutionsTotal counts tenant resolution attempts by outcome.
	TenantResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "tenant_resolutions_total",
			Help:      "Tenant resolution attempts by outcome (ok, not_found, ambiguous, central_domain).",
		},
		[]string{"outcome"},
	)

	// QuotaRejectionsTotal counts requests rejected by the quota gate, by plan.
	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "quota_rejections_total",
			Help:      "Creation requests rejected by the plan quota gate.",
		},
		[]string{"plan"},
	)

	// ProvisionedTenants tracks how many tenant stores are currently provisioned.
	ProvisionedTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "strata",
			Name:      "provisioned_tenants",
			Help:      "Number of tenants with a provisioned isolated store.",
		},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "strata",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "strata", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "strata", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "strata", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "strata", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TenantResolutionsTotal,
		QuotaRejectionsTotal,
		ProvisionedTenants,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// Middleware records request counts and latency for every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// FullPath returns the route pattern (e.g. /api/products/:id),
		// keeping label cardinality bounded. Unmatched routes collapse to "unknown".
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		status := statusLabel(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// StartDBStatsCollector periodically copies database pool stats and the
// goroutine count into gauges. Stops when ctx is cancelled.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if db != nil {
					stats := db.Stats()
					DBOpenConnections.Set(float64(stats.OpenConnections))
					DBIdleConnections.Set(float64(stats.Idle))
					DBInUseConnections.Set(float64(stats.InUse))
				}
				GoroutineCount.Set(float64(runtime.NumGoroutine()))
			}
		}
	}()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
