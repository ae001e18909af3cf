package models

import (
	"strings"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

// PlannedType controls whether occurrences are applied without confirmation.
type PlannedType string

const (
	PlannedTypeAutomatic PlannedType = "automatic"
	PlannedTypeManual    PlannedType = "manual"
)

// PlannedTransaction is a recurring template materialized into transactions by
// the scheduler.
type PlannedTransaction struct {
	Base
	Title             string          `json:"title"`
	Amount            money.Amount    `json:"amount"`
	CategoryID        *string         `json:"category_id,omitempty"`
	AccountID         string          `json:"account_id"`
	ToAccountID       *string         `json:"to_account_id,omitempty"`
	Note              string          `json:"note,omitempty"`
	IsIncome          bool            `json:"is_income"`
	Type              PlannedType     `json:"type"`
	Recurrence        recurrence.Rule `json:"-"`
	IsActive          bool            `json:"is_active"`
	NextDueDate       time.Time       `json:"next_due_date"`
	LastProcessedDate *time.Time      `json:"last_processed_date,omitempty"`
}

// OccurrenceKey identifies one occurrence of a planned transaction.
type OccurrenceKey struct {
	PlannedID string
	Due       time.Time
}

// Key returns the key of the currently due occurrence.
func (p *PlannedTransaction) Key() OccurrenceKey {
	return OccurrenceKey{PlannedID: p.ID, Due: p.NextDueDate.UTC()}
}

// IsDue reports whether the planned transaction is active and its next due
// date is not after now.
func (p *PlannedTransaction) IsDue(now time.Time) bool {
	return p.IsActive && !p.NextDueDate.After(now)
}

// Validate checks the template fields and the recurrence rule.
func (p *PlannedTransaction) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if !money.IsValidMagnitude(p.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if p.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account is required")
	}
	if p.ToAccountID != nil && *p.ToAccountID == p.AccountID {
		return apperrors.ErrSameAccountTransfer
	}
	if p.ToAccountID == nil && p.CategoryID == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required unless the planned transaction is a transfer")
	}
	switch p.Type {
	case PlannedTypeAutomatic, PlannedTypeManual:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported planned transaction type")
	}
	if p.NextDueDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "next due date is required")
	}
	return ValidatePlannedRecurrence(p.Recurrence)
}

// ValidatePlannedRecurrence accepts daily, weekly and monthly schedules and
// custom every-n-units schedules.
func ValidatePlannedRecurrence(rule recurrence.Rule) error {
	switch rule.(type) {
	case recurrence.Daily, recurrence.Weekly, recurrence.Monthly,
		recurrence.EveryDays, recurrence.EveryWeeks, recurrence.EveryMonths, recurrence.EveryYears:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInterval, "unsupported recurrence")
	}
	if err := rule.Validate(); err != nil {
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInterval, err.Error()), err)
	}
	return nil
}

// Materialize builds the transaction for the current occurrence, dated
// effectiveDate and keyed by the occurrence.
func (p *PlannedTransaction) Materialize(effectiveDate time.Time) *Transaction {
	id := p.ID
	due := p.NextDueDate
	return &Transaction{
		Date:        effectiveDate,
		Payee:       p.Title,
		CategoryID:  copyString(p.CategoryID),
		Amount:      p.Amount,
		IsIncome:    p.IsIncome,
		Note:        p.Note,
		AccountID:   p.AccountID,
		ToAccountID: copyString(p.ToAccountID),
		PlannedID:   &id,
		Occurrence:  &due,
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
