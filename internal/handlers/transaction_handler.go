package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	calendar           Calendar
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, calendar Calendar) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, calendar: calendar}
}

// CreateTransactionRequest represents the request payload for recording a
// transaction. Amount is a positive magnitude; IsIncome gives the direction.
type CreateTransactionRequest struct {
	AccountID   string       `json:"account_id" binding:"required"`
	CategoryID  *string      `json:"category_id"`
	ToAccountID *string      `json:"to_account_id"`
	Amount      money.Amount `json:"amount" swaggertype:"string" example:"42.50"`
	IsIncome    bool         `json:"is_income"`
	Payee       string       `json:"payee" binding:"max=200"`
	Note        string       `json:"note" binding:"max=500"`
	Date        string       `json:"date" example:"2025-03-14"`
}

// CreateTransferRequest moves money between two accounts.
type CreateTransferRequest struct {
	FromAccountID string       `json:"from_account_id" binding:"required"`
	ToAccountID   string       `json:"to_account_id" binding:"required"`
	Amount        money.Amount `json:"amount" swaggertype:"string" example:"100.00"`
	Note          string       `json:"note" binding:"max=500"`
	Date          string       `json:"date" example:"2025-03-14"`
}

// CreateTransaction records a transaction
// @Summary     Create a transaction
// @Description Records an income, expense or single-record transfer. The date defaults to today.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     409 {object} ErrorResponse "Account archived"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	date := h.calendar.today()
	if req.Date != "" {
		if date, err = h.calendar.parseDate("date", req.Date); err != nil {
			respondWithError(c, err)
			return
		}
	}

	tx, err := h.transactionService.CreateTransaction(c.Request.Context(), scope, models.Transaction{
		Date:        date,
		Payee:       req.Payee,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		IsIncome:    req.IsIncome,
		Note:        req.Note,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// CreateTransfer records a transfer as two linked transactions
// @Summary     Create a transfer
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.Transfer
// @Failure     400 {object} ErrorResponse "Invalid input or same account"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /transfers [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if !bindJSON(c, &req) {
		return
	}
	date := h.calendar.today()
	if req.Date != "" {
		if date, err = h.calendar.parseDate("date", req.Date); err != nil {
			respondWithError(c, err)
			return
		}
	}

	transfer, err := h.transactionService.CreateTransfer(c.Request.Context(), scope, req.FromAccountID, req.ToAccountID, req.Amount, date, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer": transfer})
}

// GetTransactionByID returns one transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.GetTransactionByID(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction removes a transaction and reverses its effects
// @Summary     Delete a transaction
// @Description Deleting one leg of a transfer removes both legs
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Account archived"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	scope, err := getScope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), scope, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
