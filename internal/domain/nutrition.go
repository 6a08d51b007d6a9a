package domain

// ConvertedAmount is a quantity normalized to milligrams
type ConvertedAmount struct {
	Value      float64 `json:"value"`      // mg
	Confidence float64 `json:"confidence"` // 0-1
	Warning    string  `json:"warning,omitempty"`
}

// IngredientAmount is a raw label amount before unit normalization
type IngredientAmount struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Name  string  `json:"name,omitempty"`
}

// ValidationResult reports whether an input is plausible
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Warning string `json:"warning,omitempty"`
}

// AmountValidation is the result of checking a label amount against a realistic ceiling
type AmountValidation struct {
	Valid      bool    `json:"valid"`
	ValueMg    float64 `json:"valueMg"`
	CeilingMg  float64 `json:"ceilingMg"`
	Confidence float64 `json:"confidence"`
	Warning    string  `json:"warning,omitempty"`
}

// Gender selects the RDA column
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// EvidenceLevel is the research evidence grade of an ingredient or product
type EvidenceLevel string

const (
	EvidenceS EvidenceLevel = "S"
	EvidenceA EvidenceLevel = "A"
	EvidenceB EvidenceLevel = "B"
	EvidenceC EvidenceLevel = "C"
	EvidenceD EvidenceLevel = "D"
)

// Score maps the grade to its 0-100 evidence score. Unknown grades score 0.
func (e EvidenceLevel) Score() float64 {
	switch e {
	case EvidenceS:
		return 100
	case EvidenceA:
		return 80
	case EvidenceB:
		return 60
	case EvidenceC:
		return 40
	case EvidenceD:
		return 20
	}
	return 0
}

// SafetyLevel classifies a daily intake against RDA and UL
type SafetyLevel string

const (
	SafetyDeficient SafetyLevel = "deficient"
	SafetyAdequate  SafetyLevel = "adequate"
	SafetyOptimal   SafetyLevel = "optimal"
	SafetyHigh      SafetyLevel = "high"
	SafetyExcessive SafetyLevel = "excessive"
	SafetyUnknown   SafetyLevel = "unknown"
)

// RecommendedIntake holds the per-gender RDA in mg
type RecommendedIntake struct {
	Male   float64 `json:"male" yaml:"male"`
	Female float64 `json:"female" yaml:"female"`
}

// For returns the RDA for a gender, defaulting to male.
func (r RecommendedIntake) For(g Gender) float64 {
	if g == GenderFemale {
		return r.Female
	}
	return r.Male
}

// UpperLimit is the tolerable upper intake level in mg
type UpperLimit struct {
	Value float64 `json:"value" yaml:"value"`
}

// RdaEntry is immutable reference data for one ingredient
type RdaEntry struct {
	RDA      RecommendedIntake `json:"rda" yaml:"rda"`
	UL       *UpperLimit       `json:"ul,omitempty" yaml:"ul,omitempty"`
	Category string            `json:"category" yaml:"category"`
}

// IngredientIntake is a single ingredient's daily amount as consumed by the evaluator
type IngredientIntake struct {
	Name          string        `json:"name"`
	AmountMg      float64       `json:"amountMg"`
	EvidenceLevel EvidenceLevel `json:"evidenceLevel,omitempty"`
}

// RdaEvaluation is the RDA/UL verdict for one ingredient
type RdaEvaluation struct {
	Ingredient            string      `json:"ingredient"`
	Key                   string      `json:"key,omitempty"`
	Found                 bool        `json:"found"`
	Category              string      `json:"category,omitempty"`
	AmountMg              float64     `json:"amountMg"`
	RdaMg                 float64     `json:"rdaMg,omitempty"`
	UpperLimitMg          *float64    `json:"upperLimitMg,omitempty"`
	FulfillmentPercent    float64     `json:"fulfillmentPercent"`
	ExceedsUL             *bool       `json:"exceedsUL"`
	SafetyLevel           SafetyLevel `json:"safetyLevel"`
	NutritionContribution float64     `json:"nutritionContribution"`
}

// NutritionScore aggregates ingredient contributions for one product
type NutritionScore struct {
	Total          float64            `json:"total"`
	CategoryScores map[string]float64 `json:"categoryScores"`
	Evaluations    []RdaEvaluation    `json:"evaluations"`
	Skipped        []string           `json:"skipped,omitempty"`
}
