package domain

import (
	"encoding/json"
	"fmt"
)

// BadgeType identifies one of the five comparative criteria
type BadgeType string

const (
	BadgeLowestPrice    BadgeType = "lowest-price"
	BadgeHighestContent BadgeType = "highest-content"
	BadgeBestValue      BadgeType = "best-value"
	BadgeEvidenceS      BadgeType = "evidence-s"
	BadgeHighSafety     BadgeType = "high-safety"
)

// AllBadges lists every criterion in evaluation order
var AllBadges = []BadgeType{
	BadgeLowestPrice,
	BadgeHighestContent,
	BadgeBestValue,
	BadgeEvidenceS,
	BadgeHighSafety,
}

// BadgeDetails is the per-criterion detail payload. The set of implementations is closed:
// PriceDetails, ContentDetails, ValueDetails, EvidenceDetails and SafetyDetails.
type BadgeDetails interface {
	Kind() BadgeType
	badgeDetails()
}

// PriceDetails describes a lowest-price evaluation
type PriceDetails struct {
	PriceJPY          float64 `json:"priceJPY"`
	MinimumPriceJPY   float64 `json:"minimumPriceJPY"`
	MultiSource       bool    `json:"multiSource"`
	FreshObservations int     `json:"freshObservations"`
	StaleFallback     bool    `json:"staleFallback"`
	BestSource        string  `json:"bestSource,omitempty"`
	PoolSize          int     `json:"poolSize"`
}

// ContentDetails describes a highest-content evaluation
type ContentDetails struct {
	DailyMg           float64 `json:"dailyMg"`
	MaxDailyMg        float64 `json:"maxDailyMg"`
	Unit              string  `json:"unit"`
	ComparisonSetSize int     `json:"comparisonSetSize"`
	ExcludedCount     int     `json:"excludedCount"`
	SafetyOverride    bool    `json:"safetyOverride,omitempty"`
}

// ValueDetails describes a best-value evaluation
type ValueDetails struct {
	CostPerMg         float64 `json:"costPerMg"`
	AdjustedCostPerMg float64 `json:"adjustedCostPerMg"`
	MinAdjustedCost   float64 `json:"minAdjustedCost"`
	QualityBonus      bool    `json:"qualityBonus"`
	ComparisonSetSize int     `json:"comparisonSetSize"`
	ExcludedCount     int     `json:"excludedCount"`
}

// EvidenceDetails describes an evidence-level evaluation
type EvidenceDetails struct {
	Level EvidenceLevel `json:"level"`
}

// SafetyDetails describes a high-safety evaluation
type SafetyDetails struct {
	ComputedScore float64  `json:"computedScore"`
	ProvidedScore *float64 `json:"providedScore,omitempty"`
	Deductions    []string `json:"deductions,omitempty"`
	Bonus         float64  `json:"bonus"`
}

func (PriceDetails) Kind() BadgeType    { return BadgeLowestPrice }
func (ContentDetails) Kind() BadgeType  { return BadgeHighestContent }
func (ValueDetails) Kind() BadgeType    { return BadgeBestValue }
func (EvidenceDetails) Kind() BadgeType { return BadgeEvidenceS }
func (SafetyDetails) Kind() BadgeType   { return BadgeHighSafety }

func (PriceDetails) badgeDetails()    {}
func (ContentDetails) badgeDetails()  {}
func (ValueDetails) badgeDetails()    {}
func (EvidenceDetails) badgeDetails() {}
func (SafetyDetails) badgeDetails()   {}

// BadgeEvaluationResult is the verdict of one criterion for one product.
// Score is the raw metric (yen, mg, yen/mg, points); NormalizedScore maps it to 0-100, higher is better.
type BadgeEvaluationResult struct {
	Badge           BadgeType    `json:"badge"`
	Awarded         bool         `json:"awarded"`
	Reason          string       `json:"reason"`
	Score           *float64     `json:"score,omitempty"`
	NormalizedScore float64      `json:"normalizedScore"`
	Confidence      float64      `json:"confidence"`
	Details         BadgeDetails `json:"details,omitempty"`
}

// ComprehensiveBadgeResult aggregates the five evaluations for one product
type ComprehensiveBadgeResult struct {
	ProductID           string                  `json:"productId,omitempty"`
	Badges              []BadgeType             `json:"badges"`
	Evaluations         []BadgeEvaluationResult `json:"evaluations"`
	HarmonyIndex        float64                 `json:"harmonyIndex"`
	IsPerfectSupplement bool                    `json:"isPerfectSupplement"`
	OverallConfidence   float64                 `json:"overallConfidence"`
	Warnings            []string                `json:"warnings"`
}

// Evaluation returns the evaluation for a badge type.
func (r *ComprehensiveBadgeResult) Evaluation(b BadgeType) (*BadgeEvaluationResult, bool) {
	for i := range r.Evaluations {
		if r.Evaluations[i].Badge == b {
			return &r.Evaluations[i], true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes Details into the concrete type selected by Badge.
func (r *BadgeEvaluationResult) UnmarshalJSON(data []byte) error {
	type plain BadgeEvaluationResult
	var aux struct {
		plain
		Details json.RawMessage `json:"details,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = BadgeEvaluationResult(aux.plain)
	if len(aux.Details) == 0 || string(aux.Details) == "null" {
		return nil
	}

	details, err := decodeDetails(r.Badge, aux.Details)
	if err != nil {
		return err
	}
	r.Details = details
	return nil
}

func decodeDetails(badge BadgeType, raw json.RawMessage) (BadgeDetails, error) {
	var target BadgeDetails
	switch badge {
	case BadgeLowestPrice:
		var d PriceDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case BadgeHighestContent:
		var d ContentDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case BadgeBestValue:
		var d ValueDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case BadgeEvidenceS:
		var d EvidenceDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case BadgeHighSafety:
		var d SafetyDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		target = d
	default:
		return nil, fmt.Errorf("unknown badge type %q", badge)
	}
	return target, nil
}
