package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"callrouter/internal/config"
	"callrouter/internal/logger"
	"callrouter/pkg/health"
	"callrouter/pkg/middleware"
	"callrouter/pkg/ratelimit"
	"callrouter/pkg/tracing"
)

// NewRouter assembles the HTTP surface: the decision API plus /health,
// /metrics and the swagger UI. ctx bounds background work started by the
// middleware.
func NewRouter(ctx context.Context, cfg *config.Config, service Service, checks *health.CheckerRegistry, log logger.Logger) *gin.Engine {
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(cfg.Tracing.ServiceName))
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RecoveryMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		h := checks.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	decisions := router.Group("")
	if cfg.Server.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromSettings(cfg.Server.RateLimit)
		decisions.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		log.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	NewHandler(service, log).RegisterRoutes(decisions)

	return router
}
