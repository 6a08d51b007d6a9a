package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/Ryotaverse69/suptia-project-sub001/config"
	httpDelivery "github.com/Ryotaverse69/suptia-project-sub001/internal/delivery/http"
	"github.com/Ryotaverse69/suptia-project-sub001/internal/infrastructure/cache"
	"github.com/Ryotaverse69/suptia-project-sub001/internal/infrastructure/reference"
	"github.com/Ryotaverse69/suptia-project-sub001/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.InitLogger(cfg.Log, cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	zap.L().Info("starting suptia decision engine",
		zap.String("version", "1.0.0"),
		zap.String("port", cfg.Server.Port),
	)

	// Reference data: embedded dataset unless a file overrides it
	ref, err := reference.Load(cfg.Reference.Path)
	if err != nil {
		zap.L().Fatal("failed to load reference dataset", zap.Error(err), zap.String("path", cfg.Reference.Path))
	}

	memoryCache := cache.NewMemoryCache()
	defer memoryCache.Close()

	// Enable debug logging in development environment
	debug := cfg.Matching.EnableDebugLogging || cfg.Server.Environment == "development"

	// Initialize usecase layer
	normalizer := usecase.NewUnitNormalizer(ref)
	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		MinConfidence:      cfg.Matching.MinConfidence,
		MaxCandidates:      cfg.Matching.MaxCandidates,
		EnableDebugLogging: debug,
	})
	rda := usecase.NewRdaEvaluator(ref)
	badges := usecase.NewBadgeEngine(normalizer, usecase.BadgeConfig{
		PriceFreshness:  cfg.Badges.PriceFreshness,
		PoolConcurrency: cfg.Badges.PoolConcurrency,
	})
	overlay := usecase.NewSafetyOverlay(rda, normalizer)
	decisions := usecase.NewDecisionService(memoryCache, badges, overlay, usecase.DecisionServiceConfig{
		CacheTTL: cfg.Cache.TTL,
	})

	zap.L().Info("decision engine configured",
		zap.Float64("min_confidence", cfg.Matching.MinConfidence),
		zap.Int("max_candidates", cfg.Matching.MaxCandidates),
		zap.Duration("price_freshness", cfg.Badges.PriceFreshness),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.Bool("debug", debug),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(matcher, normalizer, rda, overlay, decisions)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zap.L().Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		zap.L().Fatal("failed to start server", zap.Error(err))
	}
}
