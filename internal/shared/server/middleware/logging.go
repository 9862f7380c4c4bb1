package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/telemetry"
)

// ResumeIDKey and StatusTransitionKey are context keys handlers set for request logs.
const (
	ResumeIDKey         = "resumeId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"resume_id":         c.GetString(ResumeIDKey),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if ident, ok := IdentityFromContext(c); ok {
			fields["user_id"] = ident.UserID
			fields["role"] = string(ident.Role)
		}
		telemetry.Info("request.complete", fields)
	}
}
