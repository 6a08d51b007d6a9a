package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

const defaultDecisionCacheTTL = 5 * time.Minute

// DecisionServiceConfig holds configuration for the decision service
type DecisionServiceConfig struct {
	CacheTTL time.Duration
}

// BadgeRequest is one product and the candidate pool it is compared against
type BadgeRequest struct {
	Product domain.BadgeProduct   `json:"product"`
	Pool    []domain.BadgeProduct `json:"pool"`
	Gender  domain.Gender         `json:"gender,omitempty"`
}

// DecisionService runs the badge engine and the safety overlay, caching serialized results
type DecisionService struct {
	cache    domain.CacheRepository
	badges   *BadgeEngine
	overlay  *SafetyOverlay
	cacheTTL time.Duration
}

// NewDecisionService creates a new decision service with dependencies
func NewDecisionService(
	cache domain.CacheRepository,
	badges *BadgeEngine,
	overlay *SafetyOverlay,
	config DecisionServiceConfig,
) *DecisionService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultDecisionCacheTTL
	}

	return &DecisionService{
		cache:    cache,
		badges:   badges,
		overlay:  overlay,
		cacheTTL: cacheTTL,
	}
}

// EvaluateBadges returns the safety-overlaid badge result for the request.
// Flow: check cache -> evaluate badges -> apply safety overlay -> cache -> return
func (s *DecisionService) EvaluateBadges(ctx context.Context, request *BadgeRequest) (*domain.ComprehensiveBadgeResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	cacheKey, err := generateCacheKey(request, s.badges.FreshPriceCount(request.Product))
	if err != nil {
		return nil, err
	}

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	result := s.badges.EvaluateBadges(request.Product, request.Pool)
	result = s.overlay.ApplyToBadgeResult(result, request.Product, request.Gender)

	if err := s.setInCache(ctx, cacheKey, &result); err != nil {
		zap.L().Warn("decision: cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}

	return &result, nil
}

// EvaluatePool evaluates every product of the pool against the pool, with the safety overlay applied.
func (s *DecisionService) EvaluatePool(ctx context.Context, pool []domain.BadgeProduct, gender domain.Gender) ([]domain.ComprehensiveBadgeResult, error) {
	results, err := s.badges.EvaluatePool(ctx, pool)
	if err != nil {
		return nil, eris.Wrap(err, "decision: evaluate pool")
	}
	for i := range results {
		results[i] = s.overlay.ApplyToBadgeResult(results[i], pool[i], gender)
	}
	return results, nil
}

// generateCacheKey hashes the full request, so any change to product or pool misses the cache.
// freshPrices is part of the key: a result cached while observations were fresh is not
// served once they go stale.
// Format: "badges:{sha256}:{freshPrices}"
func generateCacheKey(request *BadgeRequest, freshPrices int) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", eris.Wrap(err, "decision: marshal cache key")
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("badges:%s:%d", hex.EncodeToString(sum[:]), freshPrices), nil
}

// getFromCache retrieves a badge result from cache
func (s *DecisionService) getFromCache(ctx context.Context, key string) (*domain.ComprehensiveBadgeResult, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var result domain.ComprehensiveBadgeResult
	if err := json.Unmarshal(data, &result); err != nil {
		zap.L().Warn("decision: discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// setInCache stores a badge result in cache
func (s *DecisionService) setInCache(ctx context.Context, key string, result *domain.ComprehensiveBadgeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "decision: marshal result")
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
