package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsboard_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opsboard_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsboard_uploads_total",
		Help: "Uploaded workbooks by outcome.",
	}, []string{"result"})
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opsboard_sessions_active",
		Help: "Live dashboard sessions.",
	})
	snapshotCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsboard_snapshot_cache_total",
		Help: "Snapshot cache lookups by result (hit, miss, error).",
	}, []string{"result"})
	derivedColumns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsboard_derived_columns_total",
		Help: "Derived column requests by outcome.",
	}, []string{"result"})
)

// instrument records request count and latency per route template.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
