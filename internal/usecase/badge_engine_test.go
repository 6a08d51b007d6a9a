package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
	"github.com/Ryotaverse69/suptia-project-sub001/internal/infrastructure/reference"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestBadgeEngine() *BadgeEngine {
	e := NewBadgeEngine(NewUnitNormalizer(reference.Default()), BadgeConfig{})
	e.now = func() time.Time { return testNow }
	return e
}

func floatPtr(f float64) *float64 { return &f }

func mustEvaluation(t *testing.T, r domain.ComprehensiveBadgeResult, b domain.BadgeType) domain.BadgeEvaluationResult {
	t.Helper()
	ev, ok := r.Evaluation(b)
	require.True(t, ok, "missing evaluation for %s", b)
	return *ev
}

func assertConfidencesInRange(t *testing.T, r domain.ComprehensiveBadgeResult) {
	t.Helper()
	assert.GreaterOrEqual(t, r.OverallConfidence, 0.0)
	assert.LessOrEqual(t, r.OverallConfidence, 1.0)
	assert.GreaterOrEqual(t, r.HarmonyIndex, 0.0)
	assert.LessOrEqual(t, r.HarmonyIndex, 1.0)
	for _, ev := range r.Evaluations {
		assert.GreaterOrEqual(t, ev.Confidence, 0.0, ev.Badge)
		assert.LessOrEqual(t, ev.Confidence, 1.0, ev.Badge)
	}
}

func TestNewBadgeEngine_Defaults(t *testing.T) {
	e := NewBadgeEngine(NewUnitNormalizer(reference.Default()), BadgeConfig{PriceFreshness: -time.Hour})
	assert.Equal(t, 48*time.Hour, e.priceFreshness)
	assert.Equal(t, 8, e.poolConcurrency)
}

func TestEvaluateBadges_AlwaysReturnsFiveEvaluations(t *testing.T) {
	e := newTestBadgeEngine()

	result := e.EvaluateBadges(domain.BadgeProduct{ID: "bare"}, nil)

	require.Len(t, result.Evaluations, len(domain.AllBadges))
	for i, b := range domain.AllBadges {
		assert.Equal(t, b, result.Evaluations[i].Badge)
	}

	for _, b := range []domain.BadgeType{domain.BadgeLowestPrice, domain.BadgeHighestContent, domain.BadgeBestValue, domain.BadgeEvidenceS} {
		ev := mustEvaluation(t, result, b)
		assert.False(t, ev.Awarded, b)
		assert.Equal(t, 0.0, ev.Confidence, b)
		assert.NotEmpty(t, ev.Reason, b)
	}

	// Safety needs no inputs: a product with no deductions scores 100.
	assert.Equal(t, []domain.BadgeType{domain.BadgeHighSafety}, result.Badges)
	assert.Equal(t, 0.0, result.OverallConfidence)
	assert.False(t, result.IsPerfectSupplement)
	assertConfidencesInRange(t, result)
}

func TestEvaluateBadges_LowestPrice(t *testing.T) {
	e := newTestBadgeEngine()

	t.Run("pool minimum within one yen is awarded", func(t *testing.T) {
		pool := []domain.BadgeProduct{
			{ID: "a", PriceJPY: 1000},
			{ID: "b", PriceJPY: 1200},
			{ID: "c", PriceJPY: 1000.5},
		}
		for _, p := range []domain.BadgeProduct{pool[0], pool[2]} {
			ev := mustEvaluation(t, e.EvaluateBadges(p, pool), domain.BadgeLowestPrice)
			assert.True(t, ev.Awarded, p.ID)
			assert.Equal(t, 1.0, ev.Confidence)
		}

		ev := mustEvaluation(t, e.EvaluateBadges(pool[1], pool), domain.BadgeLowestPrice)
		assert.False(t, ev.Awarded)
		details, ok := ev.Details.(domain.PriceDetails)
		require.True(t, ok)
		assert.Equal(t, 1000.0, details.MinimumPriceJPY)
		assert.Equal(t, 3, details.PoolSize)
	})

	t.Run("invalid pool prices are ignored", func(t *testing.T) {
		pool := []domain.BadgeProduct{
			{ID: "a", PriceJPY: 1500},
			{ID: "zero", PriceJPY: -1},
			{ID: "huge", PriceJPY: 5_000_000},
		}
		ev := mustEvaluation(t, e.EvaluateBadges(pool[0], pool), domain.BadgeLowestPrice)
		assert.True(t, ev.Awarded)
	})

	t.Run("out of range own price is not evaluated", func(t *testing.T) {
		ev := mustEvaluation(t, e.EvaluateBadges(domain.BadgeProduct{ID: "x", PriceJPY: 1_500_000}, nil), domain.BadgeLowestPrice)
		assert.False(t, ev.Awarded)
		assert.Equal(t, 0.0, ev.Confidence)
	})

	t.Run("multi-source uses confidence weighted minimum", func(t *testing.T) {
		fresh := testNow.Add(-time.Hour)
		p := domain.BadgeProduct{
			ID:       "m",
			PriceJPY: 980,
			Prices: []domain.PriceData{
				{Source: "amazon", Amount: 980, Confidence: 1.0, FetchedAt: fresh},
				{Source: "rakuten", Amount: 950, Confidence: 0.9, FetchedAt: fresh},
			},
		}
		ev := mustEvaluation(t, e.EvaluateBadges(p, nil), domain.BadgeLowestPrice)
		assert.True(t, ev.Awarded)
		assert.Equal(t, 1.0, ev.Confidence)

		details := ev.Details.(domain.PriceDetails)
		assert.True(t, details.MultiSource)
		assert.Equal(t, "amazon", details.BestSource)
		assert.Equal(t, 2, details.FreshObservations)
		assert.False(t, details.StaleFallback)
	})

	t.Run("stale observations fall back with reduced confidence", func(t *testing.T) {
		stale := testNow.Add(-72 * time.Hour)
		p := domain.BadgeProduct{
			ID:       "s",
			PriceJPY: 900,
			Prices: []domain.PriceData{
				{Source: "amazon", Amount: 900, Confidence: 1.0, FetchedAt: stale},
				{Source: "yahoo", Amount: 1000, Confidence: 1.0, FetchedAt: stale},
			},
		}
		result := e.EvaluateBadges(p, nil)
		ev := mustEvaluation(t, result, domain.BadgeLowestPrice)
		assert.True(t, ev.Awarded)
		assert.Equal(t, 0.5, ev.Confidence)
		assert.True(t, ev.Details.(domain.PriceDetails).StaleFallback)
		assert.Contains(t, result.Warnings, "lowest-price awarded with low confidence 0.50")
	})
}

func TestEvaluateBadges_HighestContentIU(t *testing.T) {
	e := newTestBadgeEngine()

	d1000 := domain.BadgeProduct{ID: "d1000", IngredientID: "vitamin-d", IngredientAmount: 1000, IngredientUnit: "IU", ServingsPerDay: 1}
	d2500 := domain.BadgeProduct{ID: "d2500", IngredientID: "vitamin-d", IngredientAmount: 2500, IngredientUnit: "IU", ServingsPerDay: 1}
	dBad := domain.BadgeProduct{ID: "d-bad", IngredientID: "vitamin-d", IngredientAmount: 5000, IngredientUnit: "IU", ServingsPerDay: 20}
	other := domain.BadgeProduct{ID: "c", IngredientID: "vitamin-c", IngredientAmount: 1000, IngredientUnit: "mg", ServingsPerDay: 1}
	pool := []domain.BadgeProduct{d1000, d2500, dBad, other}

	winner := mustEvaluation(t, e.EvaluateBadges(d2500, pool), domain.BadgeHighestContent)
	assert.True(t, winner.Awarded)
	assert.InDelta(t, 0.0625, *winner.Score, 1e-12)
	assert.Equal(t, 0.95, winner.Confidence)

	details := winner.Details.(domain.ContentDetails)
	assert.Equal(t, 2, details.ComparisonSetSize)
	assert.Equal(t, 1, details.ExcludedCount)
	assert.Equal(t, "mg/day", details.Unit)

	loser := mustEvaluation(t, e.EvaluateBadges(d1000, pool), domain.BadgeHighestContent)
	assert.False(t, loser.Awarded)
	assert.InDelta(t, 40, loser.NormalizedScore, 1e-9)

	anomalous := mustEvaluation(t, e.EvaluateBadges(dBad, pool), domain.BadgeHighestContent)
	assert.False(t, anomalous.Awarded)
	assert.Equal(t, 0.0, anomalous.Confidence)
}

func TestEvaluateBadges_HighestContentLowConfidence(t *testing.T) {
	e := newTestBadgeEngine()

	// IU without a known factor converts at 0.7, still usable for comparison.
	unknown := domain.BadgeProduct{ID: "u", IngredientID: "mystery", IngredientAmount: 100, IngredientUnit: "IU", ServingsPerDay: 1}
	ev := mustEvaluation(t, e.EvaluateBadges(unknown, nil), domain.BadgeHighestContent)
	assert.True(t, ev.Awarded)
	assert.Equal(t, 0.7, ev.Confidence)
}

func TestEvaluateBadges_BestValue(t *testing.T) {
	e := newTestBadgeEngine()

	base := domain.BadgeProduct{IngredientID: "vitamin-c", IngredientAmount: 100, IngredientUnit: "mg", ServingsPerDay: 1, ServingsPerContainer: 30}
	a, b, c := base, base, base
	a.ID, a.PriceJPY = "a", 1500
	b.ID, b.PriceJPY = "b", 1200
	c.ID, c.PriceJPY, c.ThirdPartyTested = "c", 1250, true
	noContainer := domain.BadgeProduct{ID: "n", PriceJPY: 100, IngredientID: "vitamin-c", IngredientAmount: 100, IngredientUnit: "mg"}
	pool := []domain.BadgeProduct{a, b, c, noContainer}

	best := mustEvaluation(t, e.EvaluateBadges(c, pool), domain.BadgeBestValue)
	assert.True(t, best.Awarded)
	details := best.Details.(domain.ValueDetails)
	assert.True(t, details.QualityBonus)
	assert.InDelta(t, 1250.0/3000, details.CostPerMg, 1e-12)
	assert.InDelta(t, 1250.0/3000*0.9, details.AdjustedCostPerMg, 1e-12)
	assert.Equal(t, 3, details.ComparisonSetSize)
	assert.Equal(t, 1, details.ExcludedCount)

	second := mustEvaluation(t, e.EvaluateBadges(b, pool), domain.BadgeBestValue)
	assert.False(t, second.Awarded)

	missing := mustEvaluation(t, e.EvaluateBadges(noContainer, pool), domain.BadgeBestValue)
	assert.False(t, missing.Awarded)
	assert.Equal(t, 0.0, missing.Confidence)
}

func TestEvaluateBadges_Evidence(t *testing.T) {
	e := newTestBadgeEngine()

	tests := []struct {
		level          domain.EvidenceLevel
		wantAwarded    bool
		wantConfidence float64
	}{
		{domain.EvidenceS, true, 1.0},
		{domain.EvidenceA, false, 1.0},
		{domain.EvidenceD, false, 1.0},
		{"Z", false, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			ev := mustEvaluation(t, e.EvaluateBadges(domain.BadgeProduct{ID: "e", EvidenceLevel: tt.level}, nil), domain.BadgeEvidenceS)
			assert.Equal(t, tt.wantAwarded, ev.Awarded)
			assert.Equal(t, tt.wantConfidence, ev.Confidence)
		})
	}
}

func TestEvaluateBadges_HighSafety(t *testing.T) {
	e := newTestBadgeEngine()

	tests := []struct {
		name        string
		product     domain.BadgeProduct
		wantScore   float64
		wantAwarded bool
	}{
		{"no deductions", domain.BadgeProduct{}, 100, true},
		{"bonus is capped at 100", domain.BadgeProduct{ThirdPartyTested: true}, 100, true},
		{"one contraindication", domain.BadgeProduct{ContraindicationCount: 1}, 80, false},
		{"contraindication offset by testing", domain.BadgeProduct{ContraindicationCount: 1, ThirdPartyTested: true}, 90, true},
		{"contraindication deduction caps at 60", domain.BadgeProduct{ContraindicationCount: 9}, 40, false},
		{"warning deduction caps at 30", domain.BadgeProduct{Warnings: []string{"a", "b", "c", "d", "e"}}, 70, false},
		{"provided score wins", domain.BadgeProduct{Warnings: []string{"a", "b", "c"}, SafetyScore: floatPtr(95)}, 95, true},
		{"out of range provided score is ignored", domain.BadgeProduct{ContraindicationCount: 1, SafetyScore: floatPtr(150)}, 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := mustEvaluation(t, e.EvaluateBadges(tt.product, nil), domain.BadgeHighSafety)
			require.NotNil(t, ev.Score)
			assert.Equal(t, tt.wantScore, *ev.Score)
			assert.Equal(t, tt.wantAwarded, ev.Awarded)
			assert.Equal(t, 1.0, ev.Confidence)
		})
	}
}

func TestEvaluateBadges_PerfectSupplement(t *testing.T) {
	e := newTestBadgeEngine()

	p := domain.BadgeProduct{
		ID:                   "perfect",
		PriceJPY:             1000,
		IngredientID:         "vitamin-c",
		IngredientAmount:     1000,
		IngredientUnit:       "mg",
		ServingsPerDay:       1,
		ServingsPerContainer: 60,
		EvidenceLevel:        domain.EvidenceS,
	}

	result := e.EvaluateBadges(p, []domain.BadgeProduct{p})
	assert.ElementsMatch(t, domain.AllBadges, result.Badges)
	assert.Equal(t, 1.0, result.HarmonyIndex)
	assert.True(t, result.IsPerfectSupplement)
	assert.Equal(t, 1.0, result.OverallConfidence)
	assert.Empty(t, result.Warnings)
	assertConfidencesInRange(t, result)
}

func TestHarmonyIndex(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"no scores", nil, 0},
		{"uniform", []float64{100, 100, 100}, 1},
		{"spread", []float64{0, 100}, 0.5},
		{"single", []float64{42}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HarmonyIndex(tt.scores)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestIsPerfectSupplement(t *testing.T) {
	tests := []struct {
		awarded int
		harmony float64
		want    bool
	}{
		{5, 0.65, false},
		{5, 0.7, false},
		{5, 0.71, true},
		{4, 0.99, false},
	}

	for _, tt := range tests {
		if got := IsPerfectSupplement(tt.awarded, tt.harmony); got != tt.want {
			t.Errorf("IsPerfectSupplement(%d, %v) = %v, want %v", tt.awarded, tt.harmony, got, tt.want)
		}
	}
}

func TestEvaluatePool(t *testing.T) {
	e := newTestBadgeEngine()
	pool := []domain.BadgeProduct{
		{ID: "a", PriceJPY: 1000},
		{ID: "b", PriceJPY: 900},
		{ID: "c", PriceJPY: 1100},
	}

	t.Run("returns results in pool order", func(t *testing.T) {
		results, err := e.EvaluatePool(context.Background(), pool)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i, r := range results {
			assert.Equal(t, pool[i].ID, r.ProductID)
		}
		assert.Contains(t, results[1].Badges, domain.BadgeLowestPrice)
		assert.NotContains(t, results[0].Badges, domain.BadgeLowestPrice)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.EvaluatePool(ctx, pool)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
