package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/scheduler"
	"envelope/internal/services"
)

// PlannedHandler handles planned transactions and their scheduler.
type PlannedHandler struct {
	plannedService services.PlannedServicer
	calendar       Calendar
}

// NewPlannedHandler creates a new PlannedHandler.
func NewPlannedHandler(plannedService services.PlannedServicer, calendar Calendar) *PlannedHandler {
	return &PlannedHandler{plannedService: plannedService, calendar: calendar}
}

// CreatePlannedRequest represents the request payload for a recurring template.
type CreatePlannedRequest struct {
	Title       string             `json:"title" binding:"required,min=1,max=200"`
	Amount      money.Amount       `json:"amount" swaggertype:"string" example:"1200.00"`
	AccountID   string             `json:"account_id" binding:"required"`
	CategoryID  *string            `json:"category_id"`
	ToAccountID *string            `json:"to_account_id"`
	Note        string             `json:"note" binding:"max=500"`
	IsIncome    bool               `json:"is_income"`
	Type        models.PlannedType `json:"type" binding:"omitempty,planned_type" example:"automatic"`
	Recurrence  RecurrenceRequest  `json:"recurrence" binding:"required"`
	NextDueDate string             `json:"next_due_date" binding:"required" example:"2025-04-01"`
	IsActive    *bool              `json:"is_active"`
}

// OccurrenceRequest selects an occurrence of a planned transaction. Both
// dates are optional: Due defaults to the current occurrence and
// EffectiveDate to the due date.
type OccurrenceRequest struct {
	Due           string `json:"due" example:"2025-04-01"`
	EffectiveDate string `json:"effective_date" example:"2025-04-03"`
}

// RunResult is one occurrence processed by a scheduler run.
type RunResult struct {
	PlannedID     string       `json:"planned_id"`
	Title         string       `json:"title"`
	Occurrence    time.Time    `json:"occurrence"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Error         *ErrorDetail `json:"error,omitempty"`
}

// RunResponse summarizes a scheduler run for one budget.
type RunResponse struct {
	Applied int         `json:"applied"`
	Failed  int         `json:"failed"`
	Results []RunResult `json:"results"`
}

func newRunResponse(results []scheduler.Result) RunResponse {
	resp := RunResponse{Results: make([]RunResult, 0, len(results))}
	for _, r := range results {
		if r.Failed() {
			resp.Failed++
		} else {
			resp.Applied++
		}
		resp.Results = append(resp.Results, RunResult{
			PlannedID:     r.PlannedID,
			Title:         r.Title,
			Occurrence:    r.Occurrence,
			TransactionID: r.TransactionID,
			Error:         errorDetail(r.Err),
		})
	}
	return resp
}

// CreatePlanned stores a recurring template
// @Summary     Create a planned transaction
// @Tags        planned
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePlannedRequest true "Planned transaction details"
// @Success     201 {object} PlannedResponse
// @Failure     400 {object} ErrorResponse "Invalid input or interval"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Router      /planned [post]
func (h *PlannedHandler) CreatePlanned(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePlannedRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := req.Recurrence.rule()
	if err != nil {
		respondWithError(c, err)
		return
	}
	due, err := h.calendar.parseDate("next_due_date", req.NextDueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if req.Type == "" {
		req.Type = models.PlannedTypeManual
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	planned, err := h.plannedService.CreatePlanned(c.Request.Context(), scope, models.PlannedTransaction{
		Title:       req.Title,
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		Note:        req.Note,
		IsIncome:    req.IsIncome,
		Type:        req.Type,
		Recurrence:  rule,
		IsActive:    active,
		NextDueDate: due,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"planned": newPlannedResponse(*planned)})
}

// GetPlanned lists planned transactions by next due date
// @Summary     List planned transactions
// @Tags        planned
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]PlannedResponse
// @Router      /planned [get]
func (h *PlannedHandler) GetPlanned(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items, err := h.plannedService.GetPlanned(c.Request.Context(), scope)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": newPlannedResponses(items)})
}

// GetPlannedByID returns one planned transaction
// @Summary     Get a planned transaction
// @Tags        planned
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Success     200 {object} PlannedResponse
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Router      /planned/{id} [get]
func (h *PlannedHandler) GetPlannedByID(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	planned, err := h.plannedService.GetPlannedByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": newPlannedResponse(*planned)})
}

// PausePlanned stops a planned transaction from coming due
// @Summary     Pause a planned transaction
// @Tags        planned
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Success     200 {object} PlannedResponse
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Router      /planned/{id}/pause [post]
func (h *PlannedHandler) PausePlanned(c *gin.Context) {
	h.setActive(c, false)
}

// ResumePlanned reactivates a paused planned transaction
// @Summary     Resume a planned transaction
// @Tags        planned
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Success     200 {object} PlannedResponse
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Router      /planned/{id}/resume [post]
func (h *PlannedHandler) ResumePlanned(c *gin.Context) {
	h.setActive(c, true)
}

func (h *PlannedHandler) setActive(c *gin.Context, active bool) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var planned *models.PlannedTransaction
	if active {
		planned, err = h.plannedService.ResumePlanned(c.Request.Context(), scope, c.Param("id"))
	} else {
		planned, err = h.plannedService.PausePlanned(c.Request.Context(), scope, c.Param("id"))
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": newPlannedResponse(*planned)})
}

// ConfirmPlanned applies an occurrence of a planned transaction
// @Summary     Confirm a planned transaction occurrence
// @Description Records the occurrence as a transaction and advances the schedule
// @Tags        planned
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Param       request body OccurrenceRequest false "Occurrence"
// @Success     201 {object} models.Transaction
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Failure     409 {object} ErrorResponse "Occurrence already applied"
// @Failure     422 {object} ErrorResponse "Schedule cannot advance"
// @Router      /planned/{id}/confirm [post]
func (h *PlannedHandler) ConfirmPlanned(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	req, ok := h.bindOccurrence(c)
	if !ok {
		return
	}
	due, err := h.optionalDate("due", req.Due)
	if err != nil {
		respondWithError(c, err)
		return
	}
	effective, err := h.optionalDate("effective_date", req.EffectiveDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.plannedService.ConfirmPlanned(c.Request.Context(), scope, c.Param("id"), due, effective)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// SkipPlanned advances past an occurrence without recording it
// @Summary     Skip a planned transaction occurrence
// @Tags        planned
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Param       request body OccurrenceRequest false "Occurrence"
// @Success     200 {object} PlannedResponse
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Failure     409 {object} ErrorResponse "Occurrence already processed"
// @Router      /planned/{id}/skip [post]
func (h *PlannedHandler) SkipPlanned(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	req, ok := h.bindOccurrence(c)
	if !ok {
		return
	}
	due, err := h.optionalDate("due", req.Due)
	if err != nil {
		respondWithError(c, err)
		return
	}

	planned, err := h.plannedService.SkipPlanned(c.Request.Context(), scope, c.Param("id"), due)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": newPlannedResponse(*planned)})
}

// DeletePlanned removes a planned transaction
// @Summary     Delete a planned transaction
// @Description Transactions already produced are kept
// @Tags        planned
// @Security    BearerAuth
// @Param       id path string true "Planned transaction ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Planned transaction not found"
// @Router      /planned/{id} [delete]
func (h *PlannedHandler) DeletePlanned(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.plannedService.DeletePlanned(c.Request.Context(), scope, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RunDue applies every automatic planned transaction that has come due
// @Summary     Process due planned transactions
// @Description Applies due automatic items, catching up on missed occurrences. Per-item failures are reported in the results.
// @Tags        scheduler
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} RunResponse
// @Router      /planned/run [post]
func (h *PlannedHandler) RunDue(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	results, err := h.plannedService.RunDue(c.Request.Context(), scope, h.calendar.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newRunResponse(results))
}

// GetManualDue lists manual planned transactions awaiting confirmation
// @Summary     List due manual planned transactions
// @Tags        scheduler
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]PlannedResponse
// @Router      /planned/due [get]
func (h *PlannedHandler) GetManualDue(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items, err := h.plannedService.GetManualDue(c.Request.Context(), scope, h.calendar.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": newPlannedResponses(items)})
}

// NotifyManualDue publishes a reminder for each due manual planned transaction
// @Summary     Send manual due reminders
// @Tags        scheduler
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{}
// @Failure     503 {object} ErrorResponse "Publisher unavailable"
// @Router      /planned/notify [post]
func (h *PlannedHandler) NotifyManualDue(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	events, err := h.plannedService.NotifyManualDue(c.Request.Context(), scope, h.calendar.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// RunAllDue processes due planned transactions of every budget
// @Summary     Process due planned transactions for all budgets
// @Description Operator endpoint, authenticated with an API key
// @Tags        scheduler
// @Produce     json
// @Param       X-API-Key header string true "Operator API key"
// @Success     200 {object} map[string]RunResponse
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "API key not configured"
// @Router      /operator/planned/run [post]
func (h *PlannedHandler) RunAllDue(c *gin.Context) {
	byScope, err := h.plannedService.RunAllDue(c.Request.Context(), h.calendar.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make(map[string]RunResponse, len(byScope))
	for scope, results := range byScope {
		out[scope] = newRunResponse(results)
	}
	c.JSON(http.StatusOK, gin.H{"scopes": out})
}

// bindOccurrence binds an optional body; an empty body selects the current
// occurrence.
func (h *PlannedHandler) bindOccurrence(c *gin.Context) (OccurrenceRequest, bool) {
	var req OccurrenceRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	return req, bindJSON(c, &req)
}

func (h *PlannedHandler) optionalDate(field, value string) (time.Time, error) {
	t, err := h.calendar.parseOptionalDate(field, value)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}
