package services

import (
	"context"
	"time"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/notify"
	"envelope/internal/pagination"
	"envelope/internal/scheduler"
)

// CreateAccountInput carries the fields of a new account.
type CreateAccountInput struct {
	Name           string
	Type           models.AccountType
	Category       models.AccountCategory
	Note           string
	OpeningBalance money.Amount
	CreatedBy      string
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(ctx context.Context, scope string, in CreateAccountInput) (*models.Account, error)
	GetAccounts(ctx context.Context, scope string, includeArchived bool) ([]models.Account, error)
	GetAccountByID(ctx context.Context, scope, accountID string) (*models.Account, error)
	ReconcileAccount(ctx context.Context, scope, accountID string, cleared money.Amount, asOf time.Time) (*models.Account, error)
	ArchiveAccount(ctx context.Context, scope, accountID string) (*models.Account, error)
	DeleteAccount(ctx context.Context, scope, accountID string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateGroup(ctx context.Context, scope, name, emoji string, isIncome bool) (*models.CategoryGroup, error)
	GetGroups(ctx context.Context, scope string) ([]models.CategoryGroup, error)
	CreateCategory(ctx context.Context, scope, groupID, name, emoji string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, scope, categoryID string) (*models.Category, error)
	Allocate(ctx context.Context, scope, categoryID string, amount money.Amount) (*models.Category, error)
	SetTarget(ctx context.Context, scope, categoryID string, target models.Target) (*models.Category, error)
	ClearTarget(ctx context.Context, scope, categoryID string) (*models.Category, error)
	GetTargetProgress(ctx context.Context, scope, categoryID string, now time.Time) (*ledger.TargetProgress, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	CategoryID *string
	IsIncome   *bool
}

// Transfer holds the two legs of an account-to-account transfer.
type Transfer struct {
	Withdrawal models.Transaction `json:"withdrawal"`
	Deposit    models.Transaction `json:"deposit"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, scope string, tx models.Transaction) (*models.Transaction, error)
	CreateTransfer(ctx context.Context, scope, fromAccountID, toAccountID string, amount money.Amount, date time.Time, note string) (*Transfer, error)
	GetAccountTransactions(ctx context.Context, scope, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, scope, transactionID string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, scope, transactionID string) error
}

// BudgetServicer defines the contract for budget-wide queries.
type BudgetServicer interface {
	GetSummary(ctx context.Context, scope string) (*BudgetSummary, error)
}

// PlannedServicer defines the contract for planned transactions and their
// scheduler.
type PlannedServicer interface {
	CreatePlanned(ctx context.Context, scope string, p models.PlannedTransaction) (*models.PlannedTransaction, error)
	GetPlanned(ctx context.Context, scope string) ([]models.PlannedTransaction, error)
	GetPlannedByID(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error)
	PausePlanned(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error)
	ResumePlanned(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error)
	ConfirmPlanned(ctx context.Context, scope, plannedID string, due, effectiveDate time.Time) (*models.Transaction, error)
	SkipPlanned(ctx context.Context, scope, plannedID string, due time.Time) (*models.PlannedTransaction, error)
	DeletePlanned(ctx context.Context, scope, plannedID string) error
	RunDue(ctx context.Context, scope string, now time.Time) ([]scheduler.Result, error)
	RunAllDue(ctx context.Context, now time.Time) (map[string][]scheduler.Result, error)
	GetManualDue(ctx context.Context, scope string, now time.Time) ([]models.PlannedTransaction, error)
	NotifyManualDue(ctx context.Context, scope string, now time.Time) ([]notify.ManualDueEvent, error)
}
