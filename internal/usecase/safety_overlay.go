package usecase

import (
	"fmt"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

// Rank percentile cutoffs for content badges
const (
	rankAPercentile = 10.0
	rankBPercentile = 30.0
	rankCPercentile = 50.0
)

// Per-ingredient safety sub-scores
var safetySubScores = map[domain.SafetyLevel]float64{
	domain.SafetyExcessive: 30,
	domain.SafetyHigh:      70,
	domain.SafetyOptimal:   100,
	domain.SafetyAdequate:  90,
	domain.SafetyDeficient: 60,
}

var gradeRecommendations = map[domain.SafetyGrade]string{
	domain.SafetyGradeS: "All ingredients are within safe intake ranges.",
	domain.SafetyGradeA: "Generally safe. Check the highlighted ingredients against your other supplements.",
	domain.SafetyGradeB: "Some ingredients are outside the ideal range. Review the intake amounts.",
	domain.SafetyGradeC: "Several ingredients raise concerns. Consult a professional before long-term use.",
	domain.SafetyGradeD: "Upper intake limits may be exceeded. Avoid use without professional advice.",
}

// SafetyOverlay layers RDA/UL safety verdicts over rank-derived content badges
type SafetyOverlay struct {
	rda        *RdaEvaluator
	normalizer *UnitNormalizer
}

// NewSafetyOverlay creates an overlay backed by the given evaluator and normalizer
func NewSafetyOverlay(rda *RdaEvaluator, normalizer *UnitNormalizer) *SafetyOverlay {
	return &SafetyOverlay{rda: rda, normalizer: normalizer}
}

// rankBadge maps an externally supplied rank to a content badge.
func rankBadge(rank, total int) domain.ContentBadge {
	if rank <= 0 || total <= 0 || rank > total {
		return domain.ContentBadgeNone
	}
	if rank == 1 {
		return domain.ContentBadgeS
	}

	percentile := float64(rank) / float64(total) * 100
	switch {
	case percentile <= rankAPercentile:
		return domain.ContentBadgeA
	case percentile <= rankBPercentile:
		return domain.ContentBadgeB
	case percentile <= rankCPercentile:
		return domain.ContentBadgeC
	}
	return domain.ContentBadgeNone
}

// warningFor returns the warning an evaluation triggers, if any. The UL check comes first
// and is the only one that replaces the badge.
func warningFor(eval domain.RdaEvaluation) *domain.WarningDetails {
	if eval.ExceedsUL != nil && *eval.ExceedsUL {
		return &domain.WarningDetails{
			Type:     domain.WarningExceedsUL,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("%s exceeds the tolerable upper intake level", eval.Ingredient),
			Recommendation: fmt.Sprintf("Daily intake of %.4g mg exceeds the upper limit of %.4g mg. Reduce the dose or choose another product.",
				eval.AmountMg, *eval.UpperLimitMg),
		}
	}

	switch eval.SafetyLevel {
	case domain.SafetyHigh, domain.SafetyExcessive:
		return &domain.WarningDetails{
			Type:     domain.WarningExcessive,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("%s provides %.0f%% of the recommended intake", eval.Ingredient, eval.FulfillmentPercent),
		}
	case domain.SafetyDeficient:
		return &domain.WarningDetails{
			Type:     domain.WarningDeficiency,
			Severity: domain.SeverityLow,
			Message:  fmt.Sprintf("%s provides only %.0f%% of the recommended intake", eval.Ingredient, eval.FulfillmentPercent),
		}
	}
	return nil
}

// DetermineContentBadgeWithSafety computes the rank badge and applies safety rules to it.
// A UL exceedance always turns the badge into a warning, whatever the rank.
func (o *SafetyOverlay) DetermineContentBadgeWithSafety(ing domain.RankedIngredient) domain.BadgeDecision {
	base := rankBadge(ing.RankInGroup, ing.TotalInGroup)
	eval := o.rda.Evaluate(ing.Name, ing.AmountMg, ing.Gender, "")

	decision := domain.BadgeDecision{
		Badge:       base,
		Message:     rankMessage(base, ing),
		SafetyLevel: eval.SafetyLevel,
	}

	warning := warningFor(eval)
	if warning == nil {
		return decision
	}

	decision.HasWarning = true
	decision.WarningDetails = warning
	if warning.Type == domain.WarningExceedsUL {
		decision.Badge = domain.ContentBadgeWarning
		decision.Message = warning.Message
	}
	return decision
}

func rankMessage(badge domain.ContentBadge, ing domain.RankedIngredient) string {
	if badge == domain.ContentBadgeNone {
		return fmt.Sprintf("%s content is not among the top half", ing.Name)
	}
	return fmt.Sprintf("%s content ranks %d of %d", ing.Name, ing.RankInGroup, ing.TotalInGroup)
}

// EvaluateProductSafety averages per-ingredient safety sub-scores and grades the product.
// Ingredients missing from the reference dataset are skipped; no scorable ingredient scores 100.
func (o *SafetyOverlay) EvaluateProductSafety(ingredients []domain.IngredientIntake, gender domain.Gender) domain.ProductSafety {
	result := domain.ProductSafety{Ingredients: []domain.IngredientSafetyScore{}}

	total := 0.0
	for _, ing := range ingredients {
		eval := o.rda.Evaluate(ing.Name, ing.AmountMg, gender, ing.EvidenceLevel)
		exceeds := eval.ExceedsUL != nil && *eval.ExceedsUL

		var score float64
		switch {
		case exceeds:
			score = 0
		case eval.SafetyLevel == domain.SafetyUnknown:
			result.Skipped = append(result.Skipped, ing.Name)
			continue
		default:
			score = safetySubScores[eval.SafetyLevel]
		}

		result.Ingredients = append(result.Ingredients, domain.IngredientSafetyScore{
			Ingredient:  ing.Name,
			SafetyLevel: eval.SafetyLevel,
			ExceedsUL:   exceeds,
			Score:       score,
		})
		total += score
	}

	result.Score = 100
	if len(result.Ingredients) > 0 {
		result.Score = total / float64(len(result.Ingredients))
	}
	result.Grade = SafetyGradeFor(result.Score)
	result.Recommendation = gradeRecommendations[result.Grade]
	return result
}

// SafetyGradeFor maps an average safety score to its letter grade.
func SafetyGradeFor(score float64) domain.SafetyGrade {
	switch {
	case score >= 95:
		return domain.SafetyGradeS
	case score >= 85:
		return domain.SafetyGradeA
	case score >= 70:
		return domain.SafetyGradeB
	case score >= 50:
		return domain.SafetyGradeC
	}
	return domain.SafetyGradeD
}

// ExtractWarningIngredients lists every ingredient that triggers a safety warning.
func (o *SafetyOverlay) ExtractWarningIngredients(ingredients []domain.IngredientIntake, gender domain.Gender) []domain.IngredientWarning {
	warnings := []domain.IngredientWarning{}
	for _, ing := range ingredients {
		eval := o.rda.Evaluate(ing.Name, ing.AmountMg, gender, ing.EvidenceLevel)
		w := warningFor(eval)
		if w == nil {
			continue
		}
		warnings = append(warnings, domain.IngredientWarning{
			Ingredient:  ing.Name,
			AmountMg:    ing.AmountMg,
			Type:        w.Type,
			Severity:    w.Severity,
			Message:     w.Message,
			SafetyLevel: eval.SafetyLevel,
		})
	}
	return warnings
}

// ApplyToBadgeResult withdraws the highest-content badge when the product's daily amount
// exceeds the UL of its ingredient, and recomputes the aggregate fields.
func (o *SafetyOverlay) ApplyToBadgeResult(result domain.ComprehensiveBadgeResult, product domain.BadgeProduct, gender domain.Gender) domain.ComprehensiveBadgeResult {
	content, ok := result.Evaluation(domain.BadgeHighestContent)
	if !ok || !ValidateServingsPerDay(product.ServingsPerDay).Valid {
		return result
	}

	conv := o.normalizer.ConvertToMg(product.IngredientAmount, product.IngredientUnit, product.ConversionName())
	if conv.Confidence == 0 {
		return result
	}
	daily := conv.Value * float64(product.ServingsPerDay)

	eval := o.rda.Evaluate(product.ConversionName(), daily, gender, product.EvidenceLevel)
	warning := warningFor(eval)
	if warning == nil || warning.Type != domain.WarningExceedsUL {
		return result
	}

	evaluations := append([]domain.BadgeEvaluationResult{}, result.Evaluations...)
	for i := range evaluations {
		if evaluations[i].Badge != content.Badge {
			continue
		}
		ev := &evaluations[i]
		ev.Awarded = false
		ev.Reason = warning.Message
		if d, ok := ev.Details.(domain.ContentDetails); ok {
			d.SafetyOverride = true
			ev.Details = d
		}
	}

	// summarize regenerates the low-confidence warnings, so only the safety warning is carried over.
	return summarize(result.ProductID, evaluations, []string{
		fmt.Sprintf("[%s] %s", warning.Severity, warning.Recommendation),
	})
}
