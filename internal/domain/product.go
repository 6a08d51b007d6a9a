package domain

import "time"

// ProductIdentifier represents the identity facts a source knows about a listing.
// Every field is optional.
type ProductIdentifier struct {
	JAN      string `json:"jan,omitempty"`
	EAN      string `json:"ean,omitempty"`
	ASIN     string `json:"asin,omitempty"`
	ItemCode string `json:"itemCode,omitempty"`
	Title    string `json:"title,omitempty"`
	Brand    string `json:"brand,omitempty"`
}

// MatchMethod names the signal that decided a match
type MatchMethod string

const (
	MatchMethodJANExact        MatchMethod = "jan_exact"
	MatchMethodASINExact       MatchMethod = "asin_exact"
	MatchMethodEANExact        MatchMethod = "ean_exact"
	MatchMethodTitleSimilarity MatchMethod = "title_similarity"
	MatchMethodNoMatch         MatchMethod = "no_match"
)

// MatchResult represents the result of comparing two product identifiers
type MatchResult struct {
	IsMatch    bool        `json:"isMatch"`
	Confidence float64     `json:"confidence"`
	Method     MatchMethod `json:"method"`
	Details    string      `json:"details,omitempty"`
}

// CandidateMatch pairs a candidate identifier with its match against a target
type CandidateMatch struct {
	Candidate ProductIdentifier `json:"candidate"`
	Match     MatchResult       `json:"match"`
}

// LinkageCandidate is one source listing proposed for linkage to a master product
type LinkageCandidate struct {
	Source     string            `json:"source"`
	ExternalID string            `json:"externalId"`
	Identifier ProductIdentifier `json:"identifier"`
	Match      MatchResult       `json:"match"`
}

// LinkageStatus is the review state of a ProductLinkage
type LinkageStatus string

const (
	LinkageVerified LinkageStatus = "verified"
	LinkagePending  LinkageStatus = "pending"
	LinkageRejected LinkageStatus = "rejected"
)

// LinkedProduct is a single source listing attached to a master product
type LinkedProduct struct {
	Source      string            `json:"source"`
	ExternalID  string            `json:"externalId"`
	Identifier  ProductIdentifier `json:"identifier"`
	MatchMethod MatchMethod       `json:"matchMethod"`
	Confidence  float64           `json:"confidence"`
	LinkedAt    time.Time         `json:"linkedAt"`
}

// ProductLinkage is the cross-source dedup record written back to the CMS by an external writer
type ProductLinkage struct {
	MasterProductID string          `json:"masterProductId"`
	LinkedProducts  []LinkedProduct `json:"linkedProducts"`
	Status          LinkageStatus   `json:"status"`
}

// PriceData is one price observation supplied by an EC adapter
type PriceData struct {
	Source     string    `json:"source"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Confidence float64   `json:"confidence"`
	FetchedAt  time.Time `json:"fetchedAt"`
	URL        string    `json:"url,omitempty"`
}

// BadgeProduct carries the CMS-backed fields the badge engine reads.
// Which evaluators can run depends on which of these are populated; see Capabilities.
type BadgeProduct struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name,omitempty"`
	PriceJPY              float64       `json:"priceJPY,omitempty"`
	Prices                []PriceData   `json:"priceData,omitempty"`
	IngredientID          string        `json:"ingredientId,omitempty"`
	IngredientName        string        `json:"ingredientName,omitempty"`
	IngredientAmount      float64       `json:"ingredientAmount,omitempty"`
	IngredientUnit        string        `json:"ingredientUnit,omitempty"`
	ServingsPerDay        int           `json:"servingsPerDay,omitempty"`
	ServingsPerContainer  int           `json:"servingsPerContainer,omitempty"`
	EvidenceLevel         EvidenceLevel `json:"evidenceLevel,omitempty"`
	SafetyScore           *float64      `json:"safetyScore,omitempty"`
	ThirdPartyTested      bool          `json:"thirdPartyTested,omitempty"`
	ContraindicationCount int           `json:"contraindicationCount,omitempty"`
	Warnings              []string      `json:"warnings,omitempty"`
}

// ConversionName is the name used to look up unit conversion factors and reference data.
func (p BadgeProduct) ConversionName() string {
	if p.IngredientName != "" {
		return p.IngredientName
	}
	return p.IngredientID
}

// Capability marks a group of inputs a badge evaluator needs
type Capability uint8

const (
	HasPriceData Capability = 1 << iota
	HasIngredientAmount
	HasContainerSize
	HasEvidence
)

// Has reports whether every bit of want is present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// CapabilitiesOf derives the capability set of a product once, at construction time.
func CapabilitiesOf(p BadgeProduct) Capability {
	var c Capability
	if p.PriceJPY != 0 || len(p.Prices) > 0 {
		c |= HasPriceData
	}
	if p.IngredientAmount != 0 && p.IngredientID != "" {
		c |= HasIngredientAmount
	}
	if p.ServingsPerContainer != 0 {
		c |= HasContainerSize
	}
	if p.EvidenceLevel != "" {
		c |= HasEvidence
	}
	return c
}
