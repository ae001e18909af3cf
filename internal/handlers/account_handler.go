package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "envelope/internal/errors"
	"envelope/internal/middleware"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/pagination"
	"envelope/internal/services"
)

// AccountHandler handles account-related requests.
type AccountHandler struct {
	accountService     services.AccountServicer
	transactionService services.TransactionServicer
	calendar           Calendar
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, transactionService services.TransactionServicer, calendar Calendar) *AccountHandler {
	return &AccountHandler{accountService: accountService, transactionService: transactionService, calendar: calendar}
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	Name           string                 `json:"name" binding:"required,min=1,max=100"`
	Type           models.AccountType     `json:"type" binding:"required,account_type"`
	Category       models.AccountCategory `json:"category" binding:"omitempty,account_category"`
	Note           string                 `json:"note" binding:"max=500"`
	OpeningBalance money.Amount           `json:"opening_balance" swaggertype:"string" example:"1000.00"`
}

// ReconcileAccountRequest represents a statement balance to reconcile against.
type ReconcileAccountRequest struct {
	ClearedBalance money.Amount `json:"cleared_balance" swaggertype:"string" example:"950.00"`
	AsOf           string       `json:"as_of" example:"2025-03-31"`
}

// CreateAccount handles the creation of a new account
// @Summary     Create an account
// @Description Create an account with an opening balance in the caller's budget
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} models.Account "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Persistence failure"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Category == "" {
		req.Category = models.AccountCategoryPersonal
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), scope, services.CreateAccountInput{
		Name:           req.Name,
		Type:           req.Type,
		Category:       req.Category,
		Note:           req.Note,
		OpeningBalance: req.OpeningBalance,
		CreatedBy:      c.GetString(middleware.SubjectKey),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// GetAccounts lists the accounts of the budget
// @Summary     List accounts
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       include_archived query bool false "Include archived accounts"
// @Success     200 {object} map[string][]models.Account
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /accounts [get]
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accounts, err := h.accountService.GetAccounts(c.Request.Context(), scope, c.Query("include_archived") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// GetAccountByID returns one account
// @Summary     Get an account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccountByID(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ReconcileAccount sets the cleared balance from a statement
// @Summary     Reconcile an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Param       request body ReconcileAccountRequest true "Statement balance"
// @Success     200 {object} models.Account
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Account archived"
// @Router      /accounts/{id}/reconcile [post]
func (h *AccountHandler) ReconcileAccount(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReconcileAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	asOf := h.calendar.today()
	if req.AsOf != "" {
		if asOf, err = h.calendar.parseDate("as_of", req.AsOf); err != nil {
			respondWithError(c, err)
			return
		}
	}

	account, err := h.accountService.ReconcileAccount(c.Request.Context(), scope, c.Param("id"), req.ClearedBalance, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ArchiveAccount archives an account
// @Summary     Archive an account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/archive [post]
func (h *AccountHandler) ArchiveAccount(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.ArchiveAccount(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeleteAccount deletes an account with its transactions
// @Summary     Delete an account
// @Tags        accounts
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), scope, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAccountTransactions lists an account's transactions, newest first
// @Summary     List account transactions
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id          path  string true  "Account ID"
// @Param       page        query int    false "Page number"
// @Param       page_size   query int    false "Items per page"
// @Param       from        query string false "First date, YYYY-MM-DD"
// @Param       to          query string false "Last date, YYYY-MM-DD"
// @Param       category_id query string false "Category ID"
// @Param       type        query string false "income or expense"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/transactions [get]
func (h *AccountHandler) GetAccountTransactions(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.TransactionFilter
	if filter.FromDate, err = h.calendar.parseOptionalDate("from", c.Query("from")); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = h.calendar.parseOptionalDate("to", c.Query("to")); err != nil {
		respondWithError(c, err)
		return
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	switch c.Query("type") {
	case "":
	case "income":
		income := true
		filter.IsIncome = &income
	case "expense":
		income := false
		filter.IsIncome = &income
	default:
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense"))
		return
	}

	resp, err := h.transactionService.GetAccountTransactions(c.Request.Context(), scope, c.Param("id"), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
