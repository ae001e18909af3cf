package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/recurrence"
	"envelope/internal/repository"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Now is the fixed reference time used by fixtures.
var Now = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

// NewScope returns a budget scope id unique within the test run.
func NewScope() string {
	return fmt.Sprintf("budget-%d", nextID())
}

// Amount parses a decimal literal.
func Amount(s string) money.Amount {
	return money.MustNew(s)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func apply(t *testing.T, repo repository.Repository, scope string, cs *repository.ChangeSet) {
	t.Helper()
	if err := repo.Apply(context.Background(), scope, cs); err != nil {
		t.Fatalf("failed to seed fixture: %v", err)
	}
}

// SeedAccount stores a checking account with the given opening balance.
func SeedAccount(t *testing.T, repo repository.Repository, scope, name, balance string) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:           name,
		Type:           models.AccountTypeChecking,
		Category:       models.AccountCategoryPersonal,
		Balance:        Amount(balance),
		ClearedBalance: Amount(balance),
		CreatedBy:      "fixture",
	}
	account.EnsureID(Now)

	cs := repository.NewChangeSet()
	cs.SaveAccount(*account)
	apply(t, repo, scope, cs)
	return account
}

// SeedCategoryGroup stores an empty category group.
func SeedCategoryGroup(t *testing.T, repo repository.Repository, scope, name string, isIncome bool) *models.CategoryGroup {
	t.Helper()

	group := &models.CategoryGroup{
		Name:     name,
		IsIncome: isIncome,
		Position: int(nextID()),
	}
	group.EnsureID(Now)

	cs := repository.NewChangeSet()
	cs.SaveCategoryGroup(*group)
	apply(t, repo, scope, cs)
	return group
}

// SeedCategory stores a category with the given allocation and no spending.
func SeedCategory(t *testing.T, repo repository.Repository, scope, groupID, name, allocated string) *models.Category {
	t.Helper()

	category := &models.Category{
		GroupID:   groupID,
		Name:      name,
		Position:  int(nextID()),
		Allocated: Amount(allocated),
		Spent:     money.Zero,
	}
	category.EnsureID(Now)

	cs := repository.NewChangeSet()
	cs.SaveCategory(*category)
	apply(t, repo, scope, cs)
	return category
}

// SeedPlanned stores an active automatic monthly planned expense.
func SeedPlanned(t *testing.T, repo repository.Repository, scope, accountID, categoryID, amount string, due time.Time) *models.PlannedTransaction {
	t.Helper()

	planned := &models.PlannedTransaction{
		Title:       fmt.Sprintf("Planned %d", nextID()),
		Amount:      Amount(amount),
		CategoryID:  Ptr(categoryID),
		AccountID:   accountID,
		Type:        models.PlannedTypeAutomatic,
		Recurrence:  recurrence.Monthly{},
		IsActive:    true,
		NextDueDate: due,
	}
	planned.EnsureID(Now)

	cs := repository.NewChangeSet()
	cs.SavePlanned(*planned)
	apply(t, repo, scope, cs)
	return planned
}
