package usecase

import (
	"math"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

// Safety level thresholds on fulfillment percentage
const (
	deficientBelowPct = 50.0
	adequateBelowPct  = 100.0
	optimalUpToPct    = 150.0
)

// RdaEvaluator compares daily intakes with reference RDA/UL values
type RdaEvaluator struct {
	ref domain.ReferenceData
}

// NewRdaEvaluator creates an evaluator over the given reference dataset
func NewRdaEvaluator(ref domain.ReferenceData) *RdaEvaluator {
	return &RdaEvaluator{ref: ref}
}

// Evaluate computes fulfillment, UL exceedance, safety level and nutrition contribution for
// amountMg of the named ingredient. Ingredients missing from the dataset come back with
// Found=false and SafetyLevel unknown.
func (e *RdaEvaluator) Evaluate(name string, amountMg float64, gender domain.Gender, evidence domain.EvidenceLevel) domain.RdaEvaluation {
	key := e.ref.CanonicalKey(name)
	result := domain.RdaEvaluation{
		Ingredient:  name,
		Key:         key,
		AmountMg:    amountMg,
		SafetyLevel: domain.SafetyUnknown,
	}

	entry, ok := e.ref.Rda(key)
	if !ok {
		return result
	}
	result.Found = true
	result.Category = entry.Category

	if entry.UL != nil {
		ul := entry.UL.Value
		exceeds := amountMg > ul
		result.UpperLimitMg = &ul
		result.ExceedsUL = &exceeds
	}

	rda := entry.RDA.For(gender)
	if rda <= 0 {
		// Without an RDA only the UL verdict is meaningful.
		if result.ExceedsUL != nil && *result.ExceedsUL {
			result.SafetyLevel = domain.SafetyExcessive
		}
		return result
	}

	result.RdaMg = rda
	result.FulfillmentPercent = amountMg / rda * 100
	result.SafetyLevel = ClassifySafety(result.FulfillmentPercent, result.ExceedsUL)
	result.NutritionContribution = math.Min(result.FulfillmentPercent, 100) / 100 * evidence.Score()

	return result
}

// ClassifySafety maps fulfillment% and the UL verdict to a safety level.
// A nil exceedsUL means no UL is defined.
func ClassifySafety(fulfillmentPct float64, exceedsUL *bool) domain.SafetyLevel {
	switch {
	case exceedsUL != nil && *exceedsUL:
		return domain.SafetyExcessive
	case fulfillmentPct < deficientBelowPct:
		return domain.SafetyDeficient
	case fulfillmentPct < adequateBelowPct:
		return domain.SafetyAdequate
	case fulfillmentPct <= optimalUpToPct:
		return domain.SafetyOptimal
	}
	return domain.SafetyHigh
}

// NutritionScore sums contributions across ingredients. Ingredients absent from the
// dataset are skipped. Category scores average the contributions within each category.
func (e *RdaEvaluator) NutritionScore(ingredients []domain.IngredientIntake, gender domain.Gender) domain.NutritionScore {
	score := domain.NutritionScore{CategoryScores: make(map[string]float64)}
	counts := make(map[string]int)

	for _, ing := range ingredients {
		eval := e.Evaluate(ing.Name, ing.AmountMg, gender, ing.EvidenceLevel)
		if !eval.Found {
			score.Skipped = append(score.Skipped, ing.Name)
			continue
		}
		score.Evaluations = append(score.Evaluations, eval)
		score.Total += eval.NutritionContribution
		score.CategoryScores[eval.Category] += eval.NutritionContribution
		counts[eval.Category]++
	}

	for category, sum := range score.CategoryScores {
		score.CategoryScores[category] = sum / float64(counts[category])
	}

	return score
}
