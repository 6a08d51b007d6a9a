package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	// sizeTokenRegex matches size/unit tokens like "1000mg", "60 capsules", "90粒".
	// Latin units must end at a word boundary so "60 gummies" keeps "gummies".
	sizeTokenRegex = regexp.MustCompile(`(?i)\d+\s?(?:(?:mg|g|ml|capsules?|tablets?)\b|粒|錠)`)
	// nonLetterRegex strips punctuation and digits, keeping letters of any script
	nonLetterRegex = regexp.MustCompile(`[^\p{L}\s]`)
	// identifierNoiseRegex strips hyphens and whitespace inside product codes
	identifierNoiseRegex = regexp.MustCompile(`[\s\-]`)
)

// Fixed confidences per exact method
const (
	janConfidence  = 1.0
	asinConfidence = 0.95
	eanConfidence  = 0.95

	defaultTitleThreshold = 0.92
	verifiedConfidence    = 0.95
)

// titleStopWords are dropped before computing title similarity
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "for": true, "with": true, "by": true,
	"supplement": true, "supplements": true, "サプリ": true, "サプリメント": true,
	"pack": true, "count": true, "bottle": true, "入り": true,
}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidence      float64
	MaxCandidates      int
	EnableDebugLogging bool
}

// MatchingService decides whether listings from different sources are the same physical product
type MatchingService struct {
	minConfidence      float64
	maxCandidates      int
	enableDebugLogging bool
	now                func() time.Time
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinConfidence
	if threshold <= 0 || threshold > 1 {
		threshold = defaultTitleThreshold
	}

	return &MatchingService{
		minConfidence:      threshold,
		maxCandidates:      config.MaxCandidates,
		enableDebugLogging: config.EnableDebugLogging,
		now:                time.Now,
	}
}

// MatchProducts compares two identifiers by strict priority: JAN, ASIN, EAN, then title similarity.
// The first method that succeeds decides the result. It never fails; no shared identifier yields no_match.
func (s *MatchingService) MatchProducts(a, b domain.ProductIdentifier) domain.MatchResult {
	if ja, jb := normalizeIdentifier(a.JAN), normalizeIdentifier(b.JAN); ja != "" && jb != "" && ja == jb {
		return domain.MatchResult{IsMatch: true, Confidence: janConfidence, Method: domain.MatchMethodJANExact, Details: "JAN " + ja}
	}

	if aa, ab := normalizeIdentifier(a.ASIN), normalizeIdentifier(b.ASIN); aa != "" && ab != "" && aa == ab {
		return domain.MatchResult{IsMatch: true, Confidence: asinConfidence, Method: domain.MatchMethodASINExact, Details: "ASIN " + aa}
	}

	if ea, eb := normalizeIdentifier(a.EAN), normalizeIdentifier(b.EAN); ea != "" && eb != "" && ea == eb {
		return domain.MatchResult{IsMatch: true, Confidence: eanConfidence, Method: domain.MatchMethodEANExact, Details: "EAN " + ea}
	}

	if strings.TrimSpace(a.Title) != "" && strings.TrimSpace(b.Title) != "" {
		similarity := TitleSimilarity(a.Title, a.Brand, b.Title, b.Brand)
		if similarity >= defaultTitleThreshold {
			return domain.MatchResult{
				IsMatch:    true,
				Confidence: similarity,
				Method:     domain.MatchMethodTitleSimilarity,
				Details:    fmt.Sprintf("title similarity %.3f", similarity),
			}
		}
	}

	return domain.MatchResult{IsMatch: false, Confidence: 0, Method: domain.MatchMethodNoMatch}
}

// FindMatchingProducts matches every candidate against target and returns those at or above
// minConfidence, highest confidence first. Equal confidences keep input order.
// A non-positive minConfidence uses the configured default.
func (s *MatchingService) FindMatchingProducts(
	target domain.ProductIdentifier,
	candidates []domain.ProductIdentifier,
	minConfidence float64,
) []domain.CandidateMatch {
	if minConfidence <= 0 {
		minConfidence = s.minConfidence
	}

	if s.maxCandidates > 0 && len(candidates) > s.maxCandidates {
		zap.L().Debug("matching: candidate pool truncated",
			zap.Int("candidates", len(candidates)),
			zap.Int("max_candidates", s.maxCandidates),
		)
		candidates = candidates[:s.maxCandidates]
	}

	matches := make([]domain.CandidateMatch, 0, len(candidates))
	for _, candidate := range candidates {
		result := s.MatchProducts(target, candidate)

		if s.enableDebugLogging {
			zap.L().Debug("matching: candidate scored",
				zap.String("title", candidate.Title),
				zap.String("method", string(result.Method)),
				zap.Float64("confidence", result.Confidence),
			)
		}

		if result.IsMatch && result.Confidence >= minConfidence {
			matches = append(matches, domain.CandidateMatch{Candidate: candidate, Match: result})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Match.Confidence > matches[j].Match.Confidence
	})

	return matches
}

// CreateProductLinkage builds the linkage record for a master product. It is verified only
// when every match is at least 0.95 confident; anything else waits for manual review.
func (s *MatchingService) CreateProductLinkage(masterID string, candidates []domain.LinkageCandidate) domain.ProductLinkage {
	linkedAt := s.now()
	linked := make([]domain.LinkedProduct, 0, len(candidates))
	allVerified := len(candidates) > 0

	for _, c := range candidates {
		linked = append(linked, domain.LinkedProduct{
			Source:      c.Source,
			ExternalID:  c.ExternalID,
			Identifier:  c.Identifier,
			MatchMethod: c.Match.Method,
			Confidence:  c.Match.Confidence,
			LinkedAt:    linkedAt,
		})
		if c.Match.Confidence < verifiedConfidence {
			allVerified = false
		}
	}

	status := domain.LinkagePending
	if allVerified {
		status = domain.LinkageVerified
	}

	return domain.ProductLinkage{
		MasterProductID: masterID,
		LinkedProducts:  linked,
		Status:          status,
	}
}

// normalizeIdentifier folds width, trims, uppercases and strips hyphens and whitespace.
func normalizeIdentifier(id string) string {
	s := strings.ToUpper(strings.TrimSpace(width.Fold.String(id)))
	return identifierNoiseRegex.ReplaceAllString(s, "")
}

// TitleSimilarity returns the Jaccard similarity of the cleaned title token sets.
func TitleSimilarity(titleA, brandA, titleB, brandB string) float64 {
	tokensA := titleTokens(titleA, brandA)
	tokensB := titleTokens(titleB, brandB)

	union := findUnion(tokensA, tokensB)
	if union == 0 {
		return 0
	}
	common, _ := findIntersection(tokensA, tokensB)
	return float64(common) / float64(union)
}

// titleTokens strips the brand, size tokens, punctuation and digits, then drops stop words.
func titleTokens(title, brand string) []string {
	s := strings.ToLower(width.Fold.String(title))

	if b := strings.ToLower(strings.TrimSpace(width.Fold.String(brand))); b != "" {
		s = strings.ReplaceAll(s, b, " ")
	}

	s = sizeTokenRegex.ReplaceAllString(s, " ")
	s = nonLetterRegex.ReplaceAllString(s, " ")

	var tokens []string
	for _, word := range strings.Fields(s) {
		if titleStopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
