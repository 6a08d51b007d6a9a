package usecase

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/width"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

// Conversion limits
const (
	maxRawAmount        = 1_000_000.0 // larger values are treated as corrupted input
	defaultIUFactor     = 0.001       // mg per IU when the ingredient is unknown
	iuKnownConfidence   = 0.95
	iuUnknownMaxConf    = 0.7 // ingredient named but not in the factor table
	iuUnnamedMaxConf    = 0.5 // no ingredient name at all
	maxServingsPerDay   = 10
	minUsableConfidence = 0.5 // conversions below this are not comparable
)

// UnitNormalizer converts label amounts into milligrams
type UnitNormalizer struct {
	ref domain.ReferenceData
}

// NewUnitNormalizer creates a normalizer over the given reference dataset
func NewUnitNormalizer(ref domain.ReferenceData) *UnitNormalizer {
	return &UnitNormalizer{ref: ref}
}

// normalizeUnit folds width and case and maps micro-sign variants to "mcg".
func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(width.Fold.String(unit)))
	switch u {
	case "μg", "µg", "ug", "mcg":
		return "mcg"
	case "iu", "i.u.":
		return "iu"
	}
	return u
}

// ConvertToMg converts value expressed in unit to milligrams.
// ingredientName is only consulted for IU conversions and may be empty.
func (n *UnitNormalizer) ConvertToMg(value float64, unit, ingredientName string) domain.ConvertedAmount {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 || value > maxRawAmount {
		return domain.ConvertedAmount{
			Value:      0,
			Confidence: 0,
			Warning:    fmt.Sprintf("invalid amount %v", value),
		}
	}

	switch normalizeUnit(unit) {
	case "mg":
		return domain.ConvertedAmount{Value: value, Confidence: 1.0}
	case "g":
		return domain.ConvertedAmount{Value: value * 1000, Confidence: 1.0}
	case "mcg":
		return domain.ConvertedAmount{Value: value * 0.001, Confidence: 1.0}
	case "iu":
		return n.convertIU(value, ingredientName)
	}

	return domain.ConvertedAmount{
		Value:      0,
		Confidence: 0,
		Warning:    fmt.Sprintf("unsupported unit %q", unit),
	}
}

func (n *UnitNormalizer) convertIU(value float64, ingredientName string) domain.ConvertedAmount {
	if strings.TrimSpace(ingredientName) == "" {
		return domain.ConvertedAmount{
			Value:      value * defaultIUFactor,
			Confidence: iuUnnamedMaxConf,
			Warning:    "IU conversion without ingredient name: default factor applied",
		}
	}

	key := n.ref.CanonicalKey(ingredientName)
	factor, ok := n.ref.IUFactor(key)
	if !ok {
		return domain.ConvertedAmount{
			Value:      value * defaultIUFactor,
			Confidence: iuUnknownMaxConf,
			Warning:    fmt.Sprintf("no IU conversion factor for %q: default factor applied", ingredientName),
		}
	}

	return domain.ConvertedAmount{Value: value * factor, Confidence: iuKnownConfidence}
}

// SumIngredientAmounts converts and sums a list of amounts.
// The result carries the lowest confidence of any entry.
func (n *UnitNormalizer) SumIngredientAmounts(amounts []domain.IngredientAmount) domain.ConvertedAmount {
	if len(amounts) == 0 {
		return domain.ConvertedAmount{Value: 0, Confidence: 0, Warning: "no ingredient amounts"}
	}

	total := 0.0
	confidence := 1.0
	var warnings []string
	for _, a := range amounts {
		c := n.ConvertToMg(a.Value, a.Unit, a.Name)
		total += c.Value
		confidence = math.Min(confidence, c.Confidence)
		if c.Warning != "" {
			warnings = append(warnings, c.Warning)
		}
	}

	return domain.ConvertedAmount{
		Value:      total,
		Confidence: confidence,
		Warning:    strings.Join(warnings, "; "),
	}
}

// ValidateServingsPerDay rejects non-positive counts and more than ten doses a day.
func ValidateServingsPerDay(n int) domain.ValidationResult {
	if n <= 0 {
		return domain.ValidationResult{Valid: false, Warning: fmt.Sprintf("servings per day must be positive, got %d", n)}
	}
	if n > maxServingsPerDay {
		return domain.ValidationResult{Valid: false, Warning: fmt.Sprintf("%d servings per day exceeds %d: treated as a data error", n, maxServingsPerDay)}
	}
	return domain.ValidationResult{Valid: true}
}

// ValidateIngredientAmount converts the amount and checks it against the realistic ceiling
// for the ingredient. Amounts over the ceiling are reported, never clamped.
func (n *UnitNormalizer) ValidateIngredientAmount(amount float64, unit, name string) domain.AmountValidation {
	converted := n.ConvertToMg(amount, unit, name)

	ceiling := n.ref.DefaultCeilingMg()
	if name != "" {
		if c, ok := n.ref.CeilingMg(n.ref.CanonicalKey(name)); ok {
			ceiling = c
		}
	}

	result := domain.AmountValidation{
		Valid:      true,
		ValueMg:    converted.Value,
		CeilingMg:  ceiling,
		Confidence: converted.Confidence,
		Warning:    converted.Warning,
	}

	if converted.Confidence == 0 {
		result.Valid = false
		return result
	}

	if converted.Value > ceiling {
		result.Valid = false
		result.Warning = joinWarnings(result.Warning,
			fmt.Sprintf("%.4g mg exceeds the realistic ceiling of %.4g mg", converted.Value, ceiling))
	}

	return result
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "; " + b
}
