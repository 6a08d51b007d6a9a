package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

// Tie tolerances. Every min/max test in this file goes through these.
const (
	priceTolerance   = 1.0   // yen
	contentTolerance = 0.001 // mg/day
	costTolerance    = 0.01  // yen per mg
)

const (
	maxValidPrice          = 999_999.0
	qualityBonusFactor     = 0.9
	stalePriceConfidence   = 0.5
	highSafetyThreshold    = 90.0
	lowConfidenceThreshold = 0.7
	perfectHarmonyMin      = 0.7

	defaultPriceFreshness  = 48 * time.Hour
	defaultPoolConcurrency = 8
)

// BadgeConfig holds configuration for the badge engine
type BadgeConfig struct {
	PriceFreshness  time.Duration
	PoolConcurrency int
}

// BadgeEngine evaluates the five comparative badges for a product against its candidate pool
type BadgeEngine struct {
	normalizer      *UnitNormalizer
	priceFreshness  time.Duration
	poolConcurrency int
	now             func() time.Time
}

// NewBadgeEngine creates a badge engine that normalizes amounts with normalizer
func NewBadgeEngine(normalizer *UnitNormalizer, config BadgeConfig) *BadgeEngine {
	freshness := config.PriceFreshness
	if freshness <= 0 {
		freshness = defaultPriceFreshness
	}

	concurrency := config.PoolConcurrency
	if concurrency <= 0 {
		concurrency = defaultPoolConcurrency
	}

	return &BadgeEngine{
		normalizer:      normalizer,
		priceFreshness:  freshness,
		poolConcurrency: concurrency,
		now:             time.Now,
	}
}

// candidate is a product with its capabilities derived once
type candidate struct {
	product domain.BadgeProduct
	caps    domain.Capability
}

func newCandidate(p domain.BadgeProduct) candidate {
	return candidate{product: p, caps: domain.CapabilitiesOf(p)}
}

func newCandidates(products []domain.BadgeProduct) []candidate {
	out := make([]candidate, len(products))
	for i, p := range products {
		out[i] = newCandidate(p)
	}
	return out
}

// evaluator runs one criterion over candidates that have the required capabilities
type evaluator struct {
	badge    domain.BadgeType
	requires domain.Capability
	missing  string
	run      func(e *BadgeEngine, self candidate, pool []candidate) domain.BadgeEvaluationResult
}

var evaluators = []evaluator{
	{
		badge:    domain.BadgeLowestPrice,
		requires: domain.HasPriceData,
		missing:  "no price data",
		run:      (*BadgeEngine).evaluateLowestPrice,
	},
	{
		badge:    domain.BadgeHighestContent,
		requires: domain.HasIngredientAmount,
		missing:  "ingredient amount or ingredient id missing",
		run:      (*BadgeEngine).evaluateHighestContent,
	},
	{
		badge:    domain.BadgeBestValue,
		requires: domain.HasPriceData | domain.HasIngredientAmount | domain.HasContainerSize,
		missing:  "price, ingredient amount, ingredient id or servings per container missing",
		run:      (*BadgeEngine).evaluateBestValue,
	},
	{
		badge:    domain.BadgeEvidenceS,
		requires: domain.HasEvidence,
		missing:  "no evidence level",
		run:      (*BadgeEngine).evaluateEvidence,
	},
	{
		badge: domain.BadgeHighSafety,
		run:   (*BadgeEngine).evaluateHighSafety,
	},
}

// EvaluateBadges runs every criterion for product against pool. It never fails: criteria that
// cannot be evaluated come back not awarded with confidence 0 and a reason.
func (e *BadgeEngine) EvaluateBadges(product domain.BadgeProduct, pool []domain.BadgeProduct) domain.ComprehensiveBadgeResult {
	self := newCandidate(product)
	candidates := newCandidates(pool)

	evaluations := make([]domain.BadgeEvaluationResult, 0, len(evaluators))
	for _, ev := range evaluators {
		if !self.caps.Has(ev.requires) {
			evaluations = append(evaluations, notEvaluated(ev.badge, ev.missing))
			continue
		}
		result := ev.run(e, self, candidates)
		result.Confidence = clamp01(result.Confidence)
		evaluations = append(evaluations, result)
	}

	return summarize(product.ID, evaluations, nil)
}

// EvaluatePool evaluates every product of pool against the whole pool concurrently.
// Results are returned in pool order.
func (e *BadgeEngine) EvaluatePool(ctx context.Context, pool []domain.BadgeProduct) ([]domain.ComprehensiveBadgeResult, error) {
	results := make([]domain.ComprehensiveBadgeResult, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.poolConcurrency)

	for i := range pool {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.EvaluateBadges(pool[i], pool)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Debug("badges: pool evaluated", zap.Int("products", len(pool)))
	return results, nil
}

func notEvaluated(badge domain.BadgeType, reason string) domain.BadgeEvaluationResult {
	return domain.BadgeEvaluationResult{
		Badge:      badge,
		Awarded:    false,
		Reason:     reason,
		Confidence: 0,
	}
}

func validPrice(p float64) bool {
	return p > 0 && p <= maxValidPrice && !math.IsNaN(p)
}

// evaluateLowestPrice compares the product price with the confidence-weighted minimum of its
// own fresh source observations, or with the pool minimum when it has fewer than two observations.
func (e *BadgeEngine) evaluateLowestPrice(self candidate, pool []candidate) domain.BadgeEvaluationResult {
	p := self.product
	if !validPrice(p.PriceJPY) {
		return notEvaluated(domain.BadgeLowestPrice, fmt.Sprintf("price ¥%.0f outside (0, %.0f]", p.PriceJPY, maxValidPrice))
	}

	details := domain.PriceDetails{PriceJPY: p.PriceJPY}
	confidence := 1.0
	minimum := math.Inf(1)

	observations := validObservations(p.Prices)
	if len(p.Prices) >= 2 && len(observations) > 0 {
		details.MultiSource = true

		fresh := e.freshObservations(observations)
		details.FreshObservations = len(fresh)

		if len(fresh) == 0 {
			fresh = observations
			details.StaleFallback = true
			confidence = stalePriceConfidence
		}

		var best domain.PriceData
		for _, o := range fresh {
			// A low-confidence source is treated as if its price were higher.
			effective := o.Amount / o.Confidence
			if effective < minimum {
				minimum = effective
				best = o
			}
		}
		details.BestSource = best.Source
		confidence = math.Min(confidence, best.Confidence)
	} else {
		for _, c := range pool {
			if validPrice(c.product.PriceJPY) {
				details.PoolSize++
				minimum = math.Min(minimum, c.product.PriceJPY)
			}
		}
		minimum = math.Min(minimum, p.PriceJPY)
	}

	details.MinimumPriceJPY = minimum
	awarded := math.Abs(p.PriceJPY-minimum) <= priceTolerance

	reason := fmt.Sprintf("¥%.0f vs minimum ¥%.0f", p.PriceJPY, minimum)
	if awarded {
		reason = fmt.Sprintf("lowest price ¥%.0f", p.PriceJPY)
	}

	score := p.PriceJPY
	return domain.BadgeEvaluationResult{
		Badge:           domain.BadgeLowestPrice,
		Awarded:         awarded,
		Reason:          reason,
		Score:           &score,
		NormalizedScore: lowerIsBetter(p.PriceJPY, minimum),
		Confidence:      confidence,
		Details:         details,
	}
}

// freshObservations keeps the observations fetched within the freshness window.
func (e *BadgeEngine) freshObservations(observations []domain.PriceData) []domain.PriceData {
	cutoff := e.now().Add(-e.priceFreshness)
	fresh := make([]domain.PriceData, 0, len(observations))
	for _, o := range observations {
		if !o.FetchedAt.Before(cutoff) {
			fresh = append(fresh, o)
		}
	}
	return fresh
}

// FreshPriceCount is the number of valid price observations of p still inside the
// freshness window. Observations only age out, so the count changes whenever the
// lowest-price verdict can.
func (e *BadgeEngine) FreshPriceCount(p domain.BadgeProduct) int {
	return len(e.freshObservations(validObservations(p.Prices)))
}

func validObservations(prices []domain.PriceData) []domain.PriceData {
	out := make([]domain.PriceData, 0, len(prices))
	for _, o := range prices {
		if validPrice(o.Amount) && o.Confidence > 0 && o.Confidence <= 1 {
			out = append(out, o)
		}
	}
	return out
}

// dailyMg returns the normalized daily amount of c, or ok=false when c is anomalous.
func (e *BadgeEngine) dailyMg(c candidate) (value, confidence float64, ok bool) {
	p := c.product
	if !ValidateServingsPerDay(p.ServingsPerDay).Valid {
		return 0, 0, false
	}
	conv := e.normalizer.ConvertToMg(p.IngredientAmount, p.IngredientUnit, p.ConversionName())
	if conv.Confidence < minUsableConfidence {
		return 0, conv.Confidence, false
	}
	return conv.Value * float64(p.ServingsPerDay), conv.Confidence, true
}

// peers yields the pool members other than self that share self's ingredient id.
func peers(self candidate, pool []candidate) []candidate {
	out := make([]candidate, 0, len(pool))
	for _, c := range pool {
		if c.product.IngredientID != self.product.IngredientID {
			continue
		}
		if self.product.ID != "" && c.product.ID == self.product.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// evaluateHighestContent awards the product whose daily mg is the maximum of its comparison set.
// Members with invalid servings per day or unusable conversions are excluded from the set.
func (e *BadgeEngine) evaluateHighestContent(self candidate, pool []candidate) domain.BadgeEvaluationResult {
	p := self.product
	if v := ValidateServingsPerDay(p.ServingsPerDay); !v.Valid {
		return notEvaluated(domain.BadgeHighestContent, v.Warning)
	}

	own, confidence, ok := e.dailyMg(self)
	if !ok {
		return notEvaluated(domain.BadgeHighestContent,
			fmt.Sprintf("unit conversion confidence %.2f below %.2f", confidence, minUsableConfidence))
	}

	details := domain.ContentDetails{DailyMg: own, Unit: "mg/day", ComparisonSetSize: 1}
	maximum := own
	for _, c := range peers(self, pool) {
		v, _, ok := e.dailyMg(c)
		if !ok {
			details.ExcludedCount++
			continue
		}
		details.ComparisonSetSize++
		maximum = math.Max(maximum, v)
	}
	details.MaxDailyMg = maximum

	awarded := maximum-own <= contentTolerance
	reason := fmt.Sprintf("%.4g mg/day vs maximum %.4g mg/day", own, maximum)
	if awarded {
		reason = fmt.Sprintf("highest content %.4g mg/day among %d products", own, details.ComparisonSetSize)
	}

	return domain.BadgeEvaluationResult{
		Badge:           domain.BadgeHighestContent,
		Awarded:         awarded,
		Reason:          reason,
		Score:           &own,
		NormalizedScore: higherIsBetter(own, maximum),
		Confidence:      confidence,
		Details:         details,
	}
}

// adjustedCost returns the quality-adjusted cost per mg of c, or ok=false when c is anomalous.
func (e *BadgeEngine) adjustedCost(c candidate) (cost, adjusted, confidence float64, ok bool) {
	p := c.product
	if !validPrice(p.PriceJPY) || p.ServingsPerContainer <= 0 {
		return 0, 0, 0, false
	}
	conv := e.normalizer.ConvertToMg(p.IngredientAmount, p.IngredientUnit, p.ConversionName())
	if conv.Confidence < minUsableConfidence {
		return 0, 0, conv.Confidence, false
	}
	total := conv.Value * float64(p.ServingsPerContainer)
	if total <= 0 {
		return 0, 0, conv.Confidence, false
	}

	cost = p.PriceJPY / total
	adjusted = cost
	if p.ThirdPartyTested {
		adjusted = cost * qualityBonusFactor
	}
	return cost, adjusted, conv.Confidence, true
}

// evaluateBestValue awards the lowest quality-adjusted cost per mg among same-ingredient peers.
func (e *BadgeEngine) evaluateBestValue(self candidate, pool []candidate) domain.BadgeEvaluationResult {
	cost, own, confidence, ok := e.adjustedCost(self)
	if !ok {
		return notEvaluated(domain.BadgeBestValue, "cost per mg cannot be computed from price, amount and container size")
	}

	details := domain.ValueDetails{
		CostPerMg:         cost,
		AdjustedCostPerMg: own,
		QualityBonus:      self.product.ThirdPartyTested,
		ComparisonSetSize: 1,
	}
	minimum := own
	for _, c := range peers(self, pool) {
		if !c.caps.Has(domain.HasIngredientAmount | domain.HasContainerSize) {
			details.ExcludedCount++
			continue
		}
		_, adjusted, _, ok := e.adjustedCost(c)
		if !ok {
			details.ExcludedCount++
			continue
		}
		details.ComparisonSetSize++
		minimum = math.Min(minimum, adjusted)
	}
	details.MinAdjustedCost = minimum

	awarded := own-minimum <= costTolerance
	reason := fmt.Sprintf("¥%.3f/mg vs minimum ¥%.3f/mg", own, minimum)
	if awarded {
		reason = fmt.Sprintf("best value ¥%.3f/mg", own)
	}

	return domain.BadgeEvaluationResult{
		Badge:           domain.BadgeBestValue,
		Awarded:         awarded,
		Reason:          reason,
		Score:           &own,
		NormalizedScore: lowerIsBetter(own, minimum),
		Confidence:      confidence,
		Details:         details,
	}
}

// evaluateEvidence is a threshold badge: only evidence level S qualifies.
func (e *BadgeEngine) evaluateEvidence(self candidate, _ []candidate) domain.BadgeEvaluationResult {
	level := self.product.EvidenceLevel
	score := level.Score()
	if score == 0 {
		return notEvaluated(domain.BadgeEvidenceS, fmt.Sprintf("unknown evidence level %q", level))
	}

	awarded := level == domain.EvidenceS
	reason := fmt.Sprintf("evidence level %s", level)
	if awarded {
		reason = "evidence level S"
	}

	return domain.BadgeEvaluationResult{
		Badge:           domain.BadgeEvidenceS,
		Awarded:         awarded,
		Reason:          reason,
		Score:           &score,
		NormalizedScore: score,
		Confidence:      1.0,
		Details:         domain.EvidenceDetails{Level: level},
	}
}

// evaluateHighSafety recomputes a transparent safety score; an explicit safetyScore wins.
func (e *BadgeEngine) evaluateHighSafety(self candidate, _ []candidate) domain.BadgeEvaluationResult {
	p := self.product
	details := domain.SafetyDetails{}

	computed := 100.0
	if n := max(p.ContraindicationCount, 0); n > 0 {
		d := math.Min(float64(n)*20, 60)
		computed -= d
		details.Deductions = append(details.Deductions, fmt.Sprintf("%d contraindications: -%.0f", n, d))
	}
	if n := len(p.Warnings); n > 0 {
		d := math.Min(float64(n)*10, 30)
		computed -= d
		details.Deductions = append(details.Deductions, fmt.Sprintf("%d warnings: -%.0f", n, d))
	}
	if p.ThirdPartyTested {
		details.Bonus = 10
		computed += 10
	}
	computed = math.Min(computed, 100)
	details.ComputedScore = computed

	final := computed
	source := "computed"
	if p.SafetyScore != nil && *p.SafetyScore >= 0 && *p.SafetyScore <= 100 {
		provided := *p.SafetyScore
		details.ProvidedScore = &provided
		final = provided
		source = "provided"
	}

	awarded := final >= highSafetyThreshold
	return domain.BadgeEvaluationResult{
		Badge:           domain.BadgeHighSafety,
		Awarded:         awarded,
		Reason:          fmt.Sprintf("%s safety score %.0f (threshold %.0f)", source, final, highSafetyThreshold),
		Score:           &final,
		NormalizedScore: final,
		Confidence:      1.0,
		Details:         details,
	}
}

// summarize aggregates evaluations into the comprehensive result.
func summarize(productID string, evaluations []domain.BadgeEvaluationResult, warnings []string) domain.ComprehensiveBadgeResult {
	result := domain.ComprehensiveBadgeResult{
		ProductID:         productID,
		Badges:            []domain.BadgeType{},
		Evaluations:       evaluations,
		OverallConfidence: 1.0,
		Warnings:          append([]string{}, warnings...),
	}

	var scores []float64
	for _, ev := range evaluations {
		result.OverallConfidence = math.Min(result.OverallConfidence, ev.Confidence)
		if !ev.Awarded {
			continue
		}
		result.Badges = append(result.Badges, ev.Badge)
		scores = append(scores, ev.NormalizedScore)
		if ev.Confidence < lowConfidenceThreshold {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s awarded with low confidence %.2f", ev.Badge, ev.Confidence))
		}
	}
	if len(evaluations) == 0 {
		result.OverallConfidence = 0
	}

	result.HarmonyIndex = HarmonyIndex(scores)
	result.IsPerfectSupplement = IsPerfectSupplement(len(result.Badges), result.HarmonyIndex)
	return result
}

// HarmonyIndex is 1 - stddev/100 over 0-100 normalized scores, clamped to [0,1].
// No scores yields 0.
func HarmonyIndex(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))

	return clamp01(1 - math.Sqrt(variance)/100)
}

// IsPerfectSupplement requires every badge awarded and harmony above 0.7.
func IsPerfectSupplement(awarded int, harmony float64) bool {
	return awarded == len(domain.AllBadges) && harmony > perfectHarmonyMin
}

// lowerIsBetter maps v against the best (minimum) value onto 0-100.
func lowerIsBetter(v, best float64) float64 {
	if v <= 0 || best <= 0 || math.IsInf(best, 0) {
		return 0
	}
	return math.Min(100, best/v*100)
}

// higherIsBetter maps v against the best (maximum) value onto 0-100.
func higherIsBetter(v, best float64) float64 {
	if v <= 0 || best <= 0 {
		return 0
	}
	return math.Min(100, v/best*100)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
