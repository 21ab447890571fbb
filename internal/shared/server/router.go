package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/applications"
	"recruit-backend/internal/documents"
	"recruit-backend/internal/jobs"
	"recruit-backend/internal/services/health"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/server/middleware"
	"recruit-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config              config.Config
	Health              *health.Service
	JobsHandler         *jobs.Handler
	DocumentsHandler    *documents.Handler
	PresignHandler      *documents.PresignHandler
	ApplicationsHandler *applications.Handler
	RateLimits          map[string]middleware.RateLimitRule
}

// DefaultRateLimits throttles oracle-bound routes harder than the rest.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		"DEFAULT":                       {Rate: 10, Burst: 40},
		middleware.SubmitRateLimitGroup: {Rate: 0.5, Burst: 5},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: rateLimitGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.PresignHandler != nil {
		deps.PresignHandler.RegisterRoutes(api)
	}
	if deps.ApplicationsHandler != nil {
		deps.ApplicationsHandler.RegisterRoutes(api)
		deps.ApplicationsHandler.RegisterPipelineRoutes(api)
	}

	return r
}

// rateLimitGroup puts every POST that reaches the scoring oracle in the
// SUBMIT bucket.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.FullPath()
	if path == "/api/v1/applications" || strings.HasSuffix(path, "/recalculate") {
		return middleware.SubmitRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
