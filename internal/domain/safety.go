package domain

// ContentBadge is the rank-derived content grade shown next to an ingredient
type ContentBadge string

const (
	ContentBadgeS       ContentBadge = "S"
	ContentBadgeA       ContentBadge = "A"
	ContentBadgeB       ContentBadge = "B"
	ContentBadgeC       ContentBadge = "C"
	ContentBadgeWarning ContentBadge = "warning"
	ContentBadgeNone    ContentBadge = "none"
)

// WarningType classifies an ingredient safety warning
type WarningType string

const (
	WarningExceedsUL  WarningType = "exceeds_ul"
	WarningExcessive  WarningType = "excessive"
	WarningDeficiency WarningType = "deficiency"
)

// Severity of an ingredient safety warning
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// WarningDetails explains why a content badge carries a warning
type WarningDetails struct {
	Type           WarningType `json:"type"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// RankedIngredient is an ingredient with its externally supplied rank in its comparison group
type RankedIngredient struct {
	Name         string  `json:"name"`
	AmountMg     float64 `json:"amountMg"`
	RankInGroup  int     `json:"rankInGroup"`
	TotalInGroup int     `json:"totalInGroup"`
	Gender       Gender  `json:"gender,omitempty"`
}

// BadgeDecision is the safety-adjusted content verdict for one ingredient
type BadgeDecision struct {
	Badge          ContentBadge    `json:"badge"`
	Message        string          `json:"message"`
	HasWarning     bool            `json:"hasWarning"`
	WarningDetails *WarningDetails `json:"warningDetails,omitempty"`
	SafetyLevel    SafetyLevel     `json:"safetyLevel"`
}

// SafetyGrade is the whole-product safety letter grade
type SafetyGrade string

const (
	SafetyGradeS SafetyGrade = "S"
	SafetyGradeA SafetyGrade = "A"
	SafetyGradeB SafetyGrade = "B"
	SafetyGradeC SafetyGrade = "C"
	SafetyGradeD SafetyGrade = "D"
)

// IngredientSafetyScore is the safety sub-score of one scorable ingredient
type IngredientSafetyScore struct {
	Ingredient  string      `json:"ingredient"`
	SafetyLevel SafetyLevel `json:"safetyLevel"`
	ExceedsUL   bool        `json:"exceedsUL"`
	Score       float64     `json:"score"`
}

// ProductSafety is the whole-product safety verdict
type ProductSafety struct {
	Score          float64                 `json:"score"`
	Grade          SafetyGrade             `json:"grade"`
	Recommendation string                  `json:"recommendation"`
	Ingredients    []IngredientSafetyScore `json:"ingredients"`
	Skipped        []string                `json:"skipped,omitempty"`
}

// IngredientWarning is one entry of the UI warning banner list
type IngredientWarning struct {
	Ingredient  string      `json:"ingredient"`
	AmountMg    float64     `json:"amountMg"`
	Type        WarningType `json:"type"`
	Severity    Severity    `json:"severity"`
	Message     string      `json:"message"`
	SafetyLevel SafetyLevel `json:"safetyLevel"`
}
