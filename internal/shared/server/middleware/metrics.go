package middleware

import (
	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/metrics"
)

// Metrics counts each request by method, matched route and status.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
