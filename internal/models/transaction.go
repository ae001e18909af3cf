package models

import (
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/money"
)

// Transaction is an immutable ledger entry.
//
// Amount is always an unsigned magnitude; IsIncome carries the direction. A
// transaction with ToAccountID set is a transfer. When LinkedID is also set the
// record is one leg of a pair created together and only moves its own account;
// otherwise the single record moves both accounts.
type Transaction struct {
	Base
	Date        time.Time    `json:"date"`
	Payee       string       `json:"payee"`
	CategoryID  *string      `json:"category_id,omitempty"`
	Amount      money.Amount `json:"amount"`
	IsIncome    bool         `json:"is_income"`
	Note        string       `json:"note,omitempty"`
	AccountID   string       `json:"account_id"`
	ToAccountID *string      `json:"to_account_id,omitempty"`

	// Other leg of a transfer pair
	LinkedID *string `json:"linked_id,omitempty"`

	// Set when the transaction materializes a planned transaction occurrence
	PlannedID  *string    `json:"planned_id,omitempty"`
	Occurrence *time.Time `json:"occurrence,omitempty"`
}

// IsTransfer reports whether the transaction moves money between accounts.
func (t *Transaction) IsTransfer() bool {
	return t.ToAccountID != nil
}

// IsLinkedLeg reports whether the transaction is one leg of a transfer pair.
func (t *Transaction) IsLinkedLeg() bool {
	return t.IsTransfer() && t.LinkedID != nil
}

// SignedAmount is the effect on the primary account's balance.
func (t *Transaction) SignedAmount() money.Amount {
	return money.Signed(t.Amount, t.IsIncome)
}

// Touches reports whether the account is the primary or counterpart account.
func (t *Transaction) Touches(accountID string) bool {
	if t.AccountID == accountID {
		return true
	}
	return t.ToAccountID != nil && *t.ToAccountID == accountID
}

// CountsAsSpending reports whether the transaction consumes its category.
func (t *Transaction) CountsAsSpending() bool {
	return !t.IsIncome && !t.IsTransfer() && t.CategoryID != nil
}

// Validate checks the fields that do not depend on other entities.
func (t *Transaction) Validate() error {
	if !money.IsValidMagnitude(t.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if t.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account is required")
	}
	if t.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}
	if t.IsTransfer() && *t.ToAccountID == t.AccountID {
		return apperrors.ErrSameAccountTransfer
	}
	if !t.IsTransfer() && t.CategoryID == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required unless the transaction is a transfer")
	}
	return nil
}
