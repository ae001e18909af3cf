package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"envelope/internal/ledger"
	"envelope/internal/middleware"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/notify"
	"envelope/internal/pagination"
	"envelope/internal/scheduler"
	"envelope/internal/services"
	"envelope/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

const testScope = "household"

var testNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func testCalendar() Calendar {
	return Calendar{Location: time.UTC, Now: func() time.Time { return testNow }}
}

func injectScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ScopeKey, scope)
		c.Set(middleware.SubjectKey, "alex")
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock account service ---

type mockAccountService struct {
	createAccountFn    func(scope string, in services.CreateAccountInput) (*models.Account, error)
	getAccountsFn      func(scope string, includeArchived bool) ([]models.Account, error)
	getAccountByIDFn   func(scope, accountID string) (*models.Account, error)
	reconcileAccountFn func(scope, accountID string, cleared money.Amount, asOf time.Time) (*models.Account, error)
	archiveAccountFn   func(scope, accountID string) (*models.Account, error)
	deleteAccountFn    func(scope, accountID string) error
}

func (m *mockAccountService) CreateAccount(_ context.Context, scope string, in services.CreateAccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(scope, in)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetAccounts(_ context.Context, scope string, includeArchived bool) ([]models.Account, error) {
	if m.getAccountsFn != nil {
		return m.getAccountsFn(scope, includeArchived)
	}
	return []models.Account{}, nil
}

func (m *mockAccountService) GetAccountByID(_ context.Context, scope, accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(scope, accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) ReconcileAccount(_ context.Context, scope, accountID string, cleared money.Amount, asOf time.Time) (*models.Account, error) {
	if m.reconcileAccountFn != nil {
		return m.reconcileAccountFn(scope, accountID, cleared, asOf)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) ArchiveAccount(_ context.Context, scope, accountID string) (*models.Account, error) {
	if m.archiveAccountFn != nil {
		return m.archiveAccountFn(scope, accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) DeleteAccount(_ context.Context, scope, accountID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(scope, accountID)
	}
	return nil
}

// --- mock category service ---

type mockCategoryService struct {
	createGroupFn       func(scope, name, emoji string, isIncome bool) (*models.CategoryGroup, error)
	getGroupsFn         func(scope string) ([]models.CategoryGroup, error)
	createCategoryFn    func(scope, groupID, name, emoji string) (*models.Category, error)
	getCategoryByIDFn   func(scope, categoryID string) (*models.Category, error)
	allocateFn          func(scope, categoryID string, amount money.Amount) (*models.Category, error)
	setTargetFn         func(scope, categoryID string, target models.Target) (*models.Category, error)
	clearTargetFn       func(scope, categoryID string) (*models.Category, error)
	getTargetProgressFn func(scope, categoryID string, now time.Time) (*ledger.TargetProgress, error)
}

func (m *mockCategoryService) CreateGroup(_ context.Context, scope, name, emoji string, isIncome bool) (*models.CategoryGroup, error) {
	if m.createGroupFn != nil {
		return m.createGroupFn(scope, name, emoji, isIncome)
	}
	return &models.CategoryGroup{}, nil
}

func (m *mockCategoryService) GetGroups(_ context.Context, scope string) ([]models.CategoryGroup, error) {
	if m.getGroupsFn != nil {
		return m.getGroupsFn(scope)
	}
	return []models.CategoryGroup{}, nil
}

func (m *mockCategoryService) CreateCategory(_ context.Context, scope, groupID, name, emoji string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(scope, groupID, name, emoji)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetCategoryByID(_ context.Context, scope, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(scope, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) Allocate(_ context.Context, scope, categoryID string, amount money.Amount) (*models.Category, error) {
	if m.allocateFn != nil {
		return m.allocateFn(scope, categoryID, amount)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) SetTarget(_ context.Context, scope, categoryID string, target models.Target) (*models.Category, error) {
	if m.setTargetFn != nil {
		return m.setTargetFn(scope, categoryID, target)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) ClearTarget(_ context.Context, scope, categoryID string) (*models.Category, error) {
	if m.clearTargetFn != nil {
		return m.clearTargetFn(scope, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetTargetProgress(_ context.Context, scope, categoryID string, now time.Time) (*ledger.TargetProgress, error) {
	if m.getTargetProgressFn != nil {
		return m.getTargetProgressFn(scope, categoryID, now)
	}
	return &ledger.TargetProgress{}, nil
}

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn      func(scope string, tx models.Transaction) (*models.Transaction, error)
	createTransferFn         func(scope, from, to string, amount money.Amount, date time.Time, note string) (*services.Transfer, error)
	getAccountTransactionsFn func(scope, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn     func(scope, transactionID string) (*models.Transaction, error)
	deleteTransactionFn      func(scope, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(_ context.Context, scope string, tx models.Transaction) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(scope, tx)
	}
	return &tx, nil
}

func (m *mockTransactionService) CreateTransfer(_ context.Context, scope, from, to string, amount money.Amount, date time.Time, note string) (*services.Transfer, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(scope, from, to, amount, date, note)
	}
	return &services.Transfer{}, nil
}

func (m *mockTransactionService) GetAccountTransactions(_ context.Context, scope, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getAccountTransactionsFn != nil {
		return m.getAccountTransactionsFn(scope, accountID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(_ context.Context, scope, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(scope, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(_ context.Context, scope, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(scope, transactionID)
	}
	return nil
}

// --- mock budget service ---

type mockBudgetService struct {
	getSummaryFn func(scope string) (*services.BudgetSummary, error)
}

func (m *mockBudgetService) GetSummary(_ context.Context, scope string) (*services.BudgetSummary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(scope)
	}
	return &services.BudgetSummary{}, nil
}

// --- mock planned service ---

type mockPlannedService struct {
	createPlannedFn   func(scope string, p models.PlannedTransaction) (*models.PlannedTransaction, error)
	getPlannedFn      func(scope string) ([]models.PlannedTransaction, error)
	getPlannedByIDFn  func(scope, plannedID string) (*models.PlannedTransaction, error)
	pausePlannedFn    func(scope, plannedID string) (*models.PlannedTransaction, error)
	resumePlannedFn   func(scope, plannedID string) (*models.PlannedTransaction, error)
	confirmPlannedFn  func(scope, plannedID string, due, effectiveDate time.Time) (*models.Transaction, error)
	skipPlannedFn     func(scope, plannedID string, due time.Time) (*models.PlannedTransaction, error)
	deletePlannedFn   func(scope, plannedID string) error
	runDueFn          func(scope string, now time.Time) ([]scheduler.Result, error)
	runAllDueFn       func(now time.Time) (map[string][]scheduler.Result, error)
	getManualDueFn    func(scope string, now time.Time) ([]models.PlannedTransaction, error)
	notifyManualDueFn func(scope string, now time.Time) ([]notify.ManualDueEvent, error)
}

func (m *mockPlannedService) CreatePlanned(_ context.Context, scope string, p models.PlannedTransaction) (*models.PlannedTransaction, error) {
	if m.createPlannedFn != nil {
		return m.createPlannedFn(scope, p)
	}
	return &p, nil
}

func (m *mockPlannedService) GetPlanned(_ context.Context, scope string) ([]models.PlannedTransaction, error) {
	if m.getPlannedFn != nil {
		return m.getPlannedFn(scope)
	}
	return []models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) GetPlannedByID(_ context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	if m.getPlannedByIDFn != nil {
		return m.getPlannedByIDFn(scope, plannedID)
	}
	return &models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) PausePlanned(_ context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	if m.pausePlannedFn != nil {
		return m.pausePlannedFn(scope, plannedID)
	}
	return &models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) ResumePlanned(_ context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	if m.resumePlannedFn != nil {
		return m.resumePlannedFn(scope, plannedID)
	}
	return &models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) ConfirmPlanned(_ context.Context, scope, plannedID string, due, effectiveDate time.Time) (*models.Transaction, error) {
	if m.confirmPlannedFn != nil {
		return m.confirmPlannedFn(scope, plannedID, due, effectiveDate)
	}
	return &models.Transaction{}, nil
}

func (m *mockPlannedService) SkipPlanned(_ context.Context, scope, plannedID string, due time.Time) (*models.PlannedTransaction, error) {
	if m.skipPlannedFn != nil {
		return m.skipPlannedFn(scope, plannedID, due)
	}
	return &models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) DeletePlanned(_ context.Context, scope, plannedID string) error {
	if m.deletePlannedFn != nil {
		return m.deletePlannedFn(scope, plannedID)
	}
	return nil
}

func (m *mockPlannedService) RunDue(_ context.Context, scope string, now time.Time) ([]scheduler.Result, error) {
	if m.runDueFn != nil {
		return m.runDueFn(scope, now)
	}
	return nil, nil
}

func (m *mockPlannedService) RunAllDue(_ context.Context, now time.Time) (map[string][]scheduler.Result, error) {
	if m.runAllDueFn != nil {
		return m.runAllDueFn(now)
	}
	return map[string][]scheduler.Result{}, nil
}

func (m *mockPlannedService) GetManualDue(_ context.Context, scope string, now time.Time) ([]models.PlannedTransaction, error) {
	if m.getManualDueFn != nil {
		return m.getManualDueFn(scope, now)
	}
	return []models.PlannedTransaction{}, nil
}

func (m *mockPlannedService) NotifyManualDue(_ context.Context, scope string, now time.Time) ([]notify.ManualDueEvent, error) {
	if m.notifyManualDueFn != nil {
		return m.notifyManualDueFn(scope, now)
	}
	return []notify.ManualDueEvent{}, nil
}

// verify interface compliance
var (
	_ services.AccountServicer     = (*mockAccountService)(nil)
	_ services.CategoryServicer    = (*mockCategoryService)(nil)
	_ services.TransactionServicer = (*mockTransactionService)(nil)
	_ services.BudgetServicer      = (*mockBudgetService)(nil)
	_ services.PlannedServicer     = (*mockPlannedService)(nil)
)

func TestCalendar_ParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	cal := Calendar{Location: loc}

	t.Run("date only is midnight in the budget zone", func(t *testing.T) {
		got, err := cal.parseDate("date", "2025-01-31")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, loc)) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("accepts RFC 3339", func(t *testing.T) {
		got, err := cal.parseDate("date", "2025-01-31T08:00:00Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC)) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := cal.parseDate("date", "31/01/2025"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty optional date is nil", func(t *testing.T) {
		got, err := cal.parseOptionalDate("from", " ")
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
	})

	t.Run("today uses the budget zone", func(t *testing.T) {
		c := Calendar{Location: loc, Now: func() time.Time { return time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC) }}
		if got := c.today(); !got.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, loc)) {
			t.Errorf("got %v", got)
		}
	})
}
