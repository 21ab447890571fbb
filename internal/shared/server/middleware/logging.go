package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/shared/telemetry"
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
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for _, key := range []string{"jobId", "applicationId", "documentId", "statusTransition"} {
			if v := c.GetString(key); v != "" {
				fields[logKey(key)] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}

func logKey(ctxKey string) string {
	switch ctxKey {
	case "jobId":
		return "job_id"
	case "applicationId":
		return "application_id"
	case "documentId":
		return "document_id"
	case "statusTransition":
		return "status_transition"
	}
	return ctxKey
}
