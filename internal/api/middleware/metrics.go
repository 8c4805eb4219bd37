package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/metrics"
)

// Metrics records every request by its route pattern, so token ids do not become labels
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
