// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus RED instrumentation. Series are labelled by
// method, registered route and status code. Requests that matched no route
// share the route label "unmatched", so probing random URLs cannot grow the
// number of series.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath labels requests that matched no registered route.
const unmatchedPath = "unmatched"

// responseSizeBuckets spans typical JSON payloads, 200 B to 1 MiB (the body cap).
var responseSizeBuckets = prometheus.ExponentialBucketsRange(200, 1<<20, 10)

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	// Latency omits status to keep histogram series down.
	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "Current number of in-flight HTTP requests.",
	})

	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Size of HTTP responses in bytes.",
		Buckets: responseSizeBuckets,
	}, []string{"method", "path"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// routeLabel returns the registered route of c, or unmatchedPath.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedPath
}

// Metrics returns a middleware that records request count, latency, size and
// concurrency. Mount promhttp.Handler() separately to expose them.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		method, route := c.Request.Method, routeLabel(c)
		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(elapsed.Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
