package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Ryotaverse69/suptia-project-sub001/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	}
	{
		identity := v1.Group("/identity")
		{
			identity.POST("/match", handler.MatchProducts)
			identity.POST("/candidates", handler.FindMatchingProducts)
			identity.POST("/linkage", handler.CreateProductLinkage)
		}

		v1.POST("/units/convert", handler.ConvertUnits)
		badges := v1.Group("/badges")
		{
			badges.POST("/evaluate", handler.EvaluateBadges)
			badges.POST("/pool", handler.EvaluatePool)
		}

		safety := v1.Group("/safety")
		{
			safety.POST("/content-badge", handler.DetermineContentBadge)
			safety.POST("/product", handler.EvaluateProductSafety)
		}
	}

	return router
}
