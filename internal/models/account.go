package models

import (
	"strings"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/money"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
)

// AccountCategory groups accounts by ownership or purpose.
type AccountCategory string

const (
	AccountCategoryPersonal   AccountCategory = "personal"
	AccountCategoryBusiness   AccountCategory = "business"
	AccountCategoryInvestment AccountCategory = "investment"
	AccountCategoryShared     AccountCategory = "shared"
)

// Account represents a financial account in a budget.
//
// Balance and ClearedBalance are running sums over every transaction touching
// the account. Only the ledger changes them, and only Reconcile overwrites
// ClearedBalance instead of accumulating into it.
type Account struct {
	Base
	Name                 string          `json:"name"`
	Type                 AccountType     `json:"type"`
	Category             AccountCategory `json:"category"`
	Note                 string          `json:"note,omitempty"`
	Balance              money.Amount    `json:"balance"`
	ClearedBalance       money.Amount    `json:"cleared_balance"`
	Archived             bool            `json:"archived"`
	LastReconciledAt     *time.Time      `json:"last_reconciled_at,omitempty"`
	LastReconciledAmount *money.Amount   `json:"last_reconciled_amount,omitempty"`
	CreatedBy            string          `json:"created_by,omitempty"`
}

// Validate checks the account's descriptive fields.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	switch a.Type {
	case AccountTypeCash, AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
	}
	switch a.Category {
	case AccountCategoryPersonal, AccountCategoryBusiness, AccountCategoryInvestment, AccountCategoryShared:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account category")
	}
	if !money.FitsScale(a.Balance) {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "opening balance has more than two decimal places")
	}
	return nil
}

// Apply moves both running balances by a signed delta.
func (a *Account) Apply(delta money.Amount) {
	a.Balance = a.Balance.Add(delta)
	a.ClearedBalance = a.ClearedBalance.Add(delta)
}
