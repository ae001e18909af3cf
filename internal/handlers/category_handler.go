package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"envelope/internal/money"
	"envelope/internal/services"
)

// CategoryHandler handles category groups, envelopes and targets.
type CategoryHandler struct {
	categoryService services.CategoryServicer
	calendar        Calendar
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer, calendar Calendar) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, calendar: calendar}
}

// CreateGroupRequest represents the request payload for creating a category group.
type CreateGroupRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Emoji    string `json:"emoji" binding:"max=16"`
	IsIncome bool   `json:"is_income"`
}

// CreateCategoryRequest represents the request payload for creating a category.
type CreateCategoryRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Emoji   string `json:"emoji" binding:"max=16"`
}

// AllocateRequest assigns money to an envelope.
type AllocateRequest struct {
	Amount money.Amount `json:"amount" swaggertype:"string" example:"250.00"`
}

// CreateGroup handles the creation of a category group
// @Summary     Create a category group
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGroupRequest true "Group details"
// @Success     201 {object} models.CategoryGroup
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /category-groups [post]
func (h *CategoryHandler) CreateGroup(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.categoryService.CreateGroup(c.Request.Context(), scope, req.Name, req.Emoji, req.IsIncome)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": newCategoryGroupResponse(*group)})
}

// GetGroups lists category groups with their envelopes
// @Summary     List category groups
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]CategoryGroupResponse
// @Router      /category-groups [get]
func (h *CategoryHandler) GetGroups(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groups, err := h.categoryService.GetGroups(c.Request.Context(), scope)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]CategoryGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, newCategoryGroupResponse(g))
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// CreateCategory handles the creation of an envelope
// @Summary     Create a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} CategoryResponse
// @Failure     404 {object} ErrorResponse "Category group not found"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), scope, req.GroupID, req.Name, req.Emoji)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": newCategoryResponse(*category)})
}

// GetCategoryByID returns one envelope
// @Summary     Get a category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} CategoryResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": newCategoryResponse(*category)})
}

// Allocate assigns money to an envelope
// @Summary     Allocate to a category
// @Description Allocating beyond the money available to budget is allowed
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       request body AllocateRequest true "Amount to allocate"
// @Success     200 {object} CategoryResponse
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/allocate [post]
func (h *CategoryHandler) Allocate(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AllocateRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Allocate(c.Request.Context(), scope, c.Param("id"), req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": newCategoryResponse(*category)})
}

// SetTarget replaces an envelope's target
// @Summary     Set a category target
// @Tags        targets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       request body TargetRequest true "Target"
// @Success     200 {object} CategoryResponse
// @Failure     400 {object} ErrorResponse "Invalid target"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/target [put]
func (h *CategoryHandler) SetTarget(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TargetRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := req.target(h.calendar)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.SetTarget(c.Request.Context(), scope, c.Param("id"), target)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": newCategoryResponse(*category)})
}

// ClearTarget removes an envelope's target
// @Summary     Clear a category target
// @Tags        targets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} CategoryResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/target [delete]
func (h *CategoryHandler) ClearTarget(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.ClearTarget(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": newCategoryResponse(*category)})
}

// GetTargetProgress reports progress towards an envelope's target
// @Summary     Get target progress
// @Tags        targets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} map[string]interface{}
// @Failure     400 {object} ErrorResponse "Category has no target"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/target/progress [get]
func (h *CategoryHandler) GetTargetProgress(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.categoryService.GetTargetProgress(c.Request.Context(), scope, c.Param("id"), h.calendar.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
