package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
	"github.com/Ryotaverse69/suptia-project-sub001/internal/usecase"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matcher    *usecase.MatchingService
	normalizer *usecase.UnitNormalizer
	rda        *usecase.RdaEvaluator
	overlay    *usecase.SafetyOverlay
	decisions  *usecase.DecisionService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	matcher *usecase.MatchingService,
	normalizer *usecase.UnitNormalizer,
	rda *usecase.RdaEvaluator,
	overlay *usecase.SafetyOverlay,
	decisions *usecase.DecisionService,
) *Handler {
	return &Handler{
		matcher:    matcher,
		normalizer: normalizer,
		rda:        rda,
		overlay:    overlay,
		decisions:  decisions,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "suptia-decision-engine",
		"version": "1.0.0",
	})
}

type matchRequest struct {
	A domain.ProductIdentifier `json:"a"`
	B domain.ProductIdentifier `json:"b"`
}

// MatchProducts compares two product identifiers
func (h *Handler) MatchProducts(c *gin.Context) {
	var req matchRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.matcher.MatchProducts(req.A, req.B))
}

type candidatesRequest struct {
	Target        domain.ProductIdentifier   `json:"target"`
	Candidates    []domain.ProductIdentifier `json:"candidates"`
	MinConfidence float64                    `json:"minConfidence"`
}

// FindMatchingProducts ranks candidates against a target identifier
func (h *Handler) FindMatchingProducts(c *gin.Context) {
	var req candidatesRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.MinConfidence < 0 || req.MinConfidence > 1 {
		respondError(c, http.StatusBadRequest, "minConfidence must be between 0 and 1")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matches": h.matcher.FindMatchingProducts(req.Target, req.Candidates, req.MinConfidence),
	})
}

type linkageRequest struct {
	MasterProductID string                    `json:"masterProductId" binding:"required"`
	Candidates      []domain.LinkageCandidate `json:"candidates"`
}

// CreateProductLinkage builds a linkage record for a master product
func (h *Handler) CreateProductLinkage(c *gin.Context) {
	var req linkageRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.matcher.CreateProductLinkage(req.MasterProductID, req.Candidates))
}

type convertRequest struct {
	Value          float64 `json:"value"`
	Unit           string  `json:"unit" binding:"required"`
	IngredientName string  `json:"ingredientName"`
}

// ConvertUnits normalizes a label amount to milligrams and checks it against the realistic ceiling
func (h *Handler) ConvertUnits(c *gin.Context) {
	var req convertRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"converted":  h.normalizer.ConvertToMg(req.Value, req.Unit, req.IngredientName),
		"validation": h.normalizer.ValidateIngredientAmount(req.Value, req.Unit, req.IngredientName),
	})
}

// EvaluateBadges runs the badge engine with the safety overlay for one product
func (h *Handler) EvaluateBadges(c *gin.Context) {
	var req usecase.BadgeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validGender(req.Gender) {
		respondError(c, http.StatusBadRequest, "gender must be 'male' or 'female'")
		return
	}

	result, err := h.decisions.EvaluateBadges(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type poolRequest struct {
	Pool   []domain.BadgeProduct `json:"pool" binding:"required"`
	Gender domain.Gender         `json:"gender"`
}

// EvaluatePool evaluates every product of a pool against the pool
func (h *Handler) EvaluatePool(c *gin.Context) {
	var req poolRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validGender(req.Gender) {
		respondError(c, http.StatusBadRequest, "gender must be 'male' or 'female'")
		return
	}

	results, err := h.decisions.EvaluatePool(c.Request.Context(), req.Pool, req.Gender)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type contentBadgeRequest struct {
	Ingredient domain.RankedIngredient `json:"ingredient"`
}

// DetermineContentBadge returns the safety-adjusted content badge of one ingredient
func (h *Handler) DetermineContentBadge(c *gin.Context) {
	var req contentBadgeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Ingredient.Name == "" {
		respondError(c, http.StatusBadRequest, "ingredient.name is required")
		return
	}
	if !validGender(req.Ingredient.Gender) {
		respondError(c, http.StatusBadRequest, "gender must be 'male' or 'female'")
		return
	}
	c.JSON(http.StatusOK, h.overlay.DetermineContentBadgeWithSafety(req.Ingredient))
}

type productSafetyRequest struct {
	Ingredients []domain.IngredientIntake `json:"ingredients"`
	Gender      domain.Gender             `json:"gender"`
}

// EvaluateProductSafety grades a whole product and lists its warning ingredients
func (h *Handler) EvaluateProductSafety(c *gin.Context) {
	var req productSafetyRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validGender(req.Gender) {
		respondError(c, http.StatusBadRequest, "gender must be 'male' or 'female'")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"safety":    h.overlay.EvaluateProductSafety(req.Ingredients, req.Gender),
		"warnings":  h.overlay.ExtractWarningIngredients(req.Ingredients, req.Gender),
		"nutrition": h.rda.NutritionScore(req.Ingredients, req.Gender),
	})
}

func validGender(g domain.Gender) bool {
	return g == "" || g == domain.GenderMale || g == domain.GenderFemale
}

// bindJSON decodes the body into dst, answering 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("http: request failed", zap.Error(err), zap.String("path", c.FullPath()))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
