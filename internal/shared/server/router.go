package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docextract-backend/internal/services/health"
	"docextract-backend/internal/shared/config"
	"docextract-backend/internal/shared/metrics"
	"docextract-backend/internal/shared/server/middleware"
	"docextract-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers and policies the router mounts.
type RouterDeps struct {
	Config   config.Config
	Health   *health.Service
	Limiter  middleware.WindowLimiter
	Handlers []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Requests: deps.Config.RateLimitRequests,
			Window:   deps.Config.RateLimitWindow,
			Limiter:  deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	authed := api.Group("", middleware.Auth(deps.Config.AllowGuests))
	registerMeRoutes(authed)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(authed)
		}
	}

	return r
}

// Handler wraps the router with the CORS policy, which must see preflight requests
// before Gin's routing does.
func Handler(cfg config.Config, r *gin.Engine) http.Handler {
	return middleware.CORS(cfg.CORSAllowOrigin)(r)
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
