// Package errors provides the application error type for the envelope ledger.
// Every ledger, scheduler and repository failure surfaces as an *AppError so
// callers can branch on a stable code and the HTTP layer can map it to a
// response without leaking internal details.
package errors

import (
	"fmt"
	"net/http"
)

// EntityKind names the aggregate an error refers to.
type EntityKind string

const (
	EntityAccount            EntityKind = "account"
	EntityCategoryGroup      EntityKind = "category_group"
	EntityCategory           EntityKind = "category"
	EntityTransaction        EntityKind = "transaction"
	EntityPlannedTransaction EntityKind = "planned_transaction"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	Entity     EntityKind `json:"entity,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	StatusCode int        `json:"-"`
	Internal   error      `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches another *AppError by code, so errors.Is(err, ErrAccountArchived)
// holds for wrapped or re-messaged copies of a sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Entity:     sentinel.Entity,
		EntityID:   sentinel.EntityID,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Entity:     sentinel.Entity,
		EntityID:   sentinel.EntityID,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// NotFound returns the not-found error for the given entity kind and id.
func NotFound(kind EntityKind, id string) *AppError {
	sentinel, ok := notFoundByKind[kind]
	if !ok {
		sentinel = ErrNotFound
	}
	return &AppError{
		Code:       sentinel.Code,
		Message:    fmt.Sprintf("%s %s not found", kind, id),
		Entity:     kind,
		EntityID:   id,
		StatusCode: sentinel.StatusCode,
	}
}

// PersistenceFailure wraps a repository error.
func PersistenceFailure(cause error) *AppError {
	return Wrap(ErrPersistenceFailure, cause)
}

// Authentication errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Not-found errors per entity kind.
var (
	ErrAccountNotFound            = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", Entity: EntityAccount, StatusCode: http.StatusNotFound}
	ErrCategoryGroupNotFound      = &AppError{Code: "CATEGORY_GROUP_NOT_FOUND", Message: "Category group not found", Entity: EntityCategoryGroup, StatusCode: http.StatusNotFound}
	ErrCategoryNotFound           = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", Entity: EntityCategory, StatusCode: http.StatusNotFound}
	ErrTransactionNotFound        = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", Entity: EntityTransaction, StatusCode: http.StatusNotFound}
	ErrPlannedTransactionNotFound = &AppError{Code: "PLANNED_TRANSACTION_NOT_FOUND", Message: "Planned transaction not found", Entity: EntityPlannedTransaction, StatusCode: http.StatusNotFound}
)

var notFoundByKind = map[EntityKind]*AppError{
	EntityAccount:            ErrAccountNotFound,
	EntityCategoryGroup:      ErrCategoryGroupNotFound,
	EntityCategory:           ErrCategoryNotFound,
	EntityTransaction:        ErrTransactionNotFound,
	EntityPlannedTransaction: ErrPlannedTransactionNotFound,
}

// Ledger errors.
var (
	ErrInvalidAmount       = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be a finite value greater than zero", StatusCode: http.StatusBadRequest}
	ErrInvalidInterval     = &AppError{Code: "INVALID_INTERVAL", Message: "Invalid interval", StatusCode: http.StatusBadRequest}
	ErrAccountArchived     = &AppError{Code: "ACCOUNT_ARCHIVED", Message: "Account is archived", StatusCode: http.StatusConflict}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
	ErrPersistenceFailure  = &AppError{Code: "PERSISTENCE_FAILURE", Message: "Failed to persist changes", StatusCode: http.StatusServiceUnavailable}
)

// Scheduler errors.
var (
	ErrDuplicateApplication = &AppError{Code: "DUPLICATE_APPLICATION", Message: "Planned transaction occurrence already applied", StatusCode: http.StatusConflict}
	ErrScheduleStalled      = &AppError{Code: "INVALID_INTERVAL", Message: "Schedule cannot advance past its due date", StatusCode: http.StatusUnprocessableEntity}
)
