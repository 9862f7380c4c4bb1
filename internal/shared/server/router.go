package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"resume-pipeline/internal/services/health"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/server/respond"
)

// RouteRegistrar mounts a feature's handlers on the authenticated API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Options configures the HTTP router.
type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Health      *health.Service
	RateLimits  map[string]middleware.RateLimitRule
	Routes      []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.Metrics(opts.Metrics),
		middleware.CORS(opts.CORSOrigins),
	)

	healthSvc := opts.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/healthz", func(c *gin.Context) {
		respond.OK(c, healthSvc.Status())
	})
	r.GET("/readyz", func(c *gin.Context) {
		report := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", metrics.Handler(opts.Gatherer))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Identity())
	if len(opts.RateLimits) > 0 {
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    opts.RateLimits,
			GroupFor: rateLimitGroup,
		}))
	}
	registerMeRoutes(api)
	for _, reg := range opts.Routes {
		reg.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup puts uploads and pipeline triggers in the WRITE group and
// everything else in DEFAULT.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost {
		return "WRITE"
	}
	return "DEFAULT"
}

// NewHTTPServer wraps handler with OpenTelemetry instrumentation.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, "resume-pipeline.http"),
		ReadHeaderTimeout: 10 * time.Second,
	}
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
