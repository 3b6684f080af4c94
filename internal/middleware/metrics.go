package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records latency, status and concurrency per route template. Paths
// in skip (probes and the scrape endpoint) are not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		ignored[p] = struct{}{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := ignored[route]; ok || metricsSvc == nil {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		done := metricsSvc.TrackInFlight()
		start := time.Now()
		defer func() {
			done()
			metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}()
		c.Next()
	}
}
