package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
)

// Metrics records request counts and durations for every route.
func Metrics(m *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.RecordRequest(
			c.Request.Method,
			path,
			strconv.Itoa(status),
			time.Since(start),
			status >= 400,
		)
	}
}
