package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "envelope/internal/errors"
	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectScope(testScope))
	auth.POST("/category-groups", handler.CreateGroup)
	auth.GET("/category-groups", handler.GetGroups)
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories/:id", handler.GetCategoryByID)
	auth.POST("/categories/:id/allocate", handler.Allocate)
	auth.PUT("/categories/:id/target", handler.SetTarget)
	auth.DELETE("/categories/:id/target", handler.ClearTarget)
	auth.GET("/categories/:id/target/progress", handler.GetTargetProgress)
	return r
}

func TestCategoryHandler_Groups(t *testing.T) {
	t.Run("creates a group", func(t *testing.T) {
		svc := &mockCategoryService{
			createGroupFn: func(_, name, emoji string, isIncome bool) (*models.CategoryGroup, error) {
				return &models.CategoryGroup{Base: models.Base{ID: "grp-1"}, Name: name, Emoji: emoji, IsIncome: isIncome}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "POST", "/category-groups", `{"name":"Bills","emoji":"🧾"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		group := parseJSON(t, rec)["group"].(map[string]interface{})
		if group["name"] != "Bills" {
			t.Errorf("expected Bills, got %v", group["name"])
		}
		if cats, ok := group["categories"].([]interface{}); !ok || len(cats) != 0 {
			t.Errorf("expected empty categories, got %v", group["categories"])
		}
	})

	t.Run("lists groups with available and target", func(t *testing.T) {
		svc := &mockCategoryService{
			getGroupsFn: func(string) ([]models.CategoryGroup, error) {
				return []models.CategoryGroup{{
					Name: "Bills",
					Categories: []models.Category{{
						Name:      "Rent",
						Allocated: money.MustNew("1200"),
						Spent:     money.MustNew("200"),
						Target:    models.MonthlyTarget{Goal: money.MustNew("1200")},
					}},
				}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "GET", "/category-groups", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		groups := parseJSON(t, rec)["groups"].([]interface{})
		cat := groups[0].(map[string]interface{})["categories"].([]interface{})[0].(map[string]interface{})
		if cat["available"] != "1000" {
			t.Errorf("expected available 1000, got %v", cat["available"])
		}
		target := cat["target"].(map[string]interface{})
		if target["kind"] != "monthly" {
			t.Errorf("expected monthly target, got %v", target["kind"])
		}
	})
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 404 for unknown group", func(t *testing.T) {
		svc := &mockCategoryService{
			createCategoryFn: func(_, groupID, _, _ string) (*models.Category, error) {
				return nil, apperrors.NotFound(apperrors.EntityCategoryGroup, groupID)
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "POST", "/categories", `{"group_id":"nope","name":"Rent"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_GROUP_NOT_FOUND")
	})

	t.Run("returns 400 without group", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "POST", "/categories", `{"name":"Rent"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_Allocate(t *testing.T) {
	t.Run("passes the amount", func(t *testing.T) {
		var got money.Amount
		svc := &mockCategoryService{
			allocateFn: func(_, id string, amount money.Amount) (*models.Category, error) {
				got = amount
				return &models.Category{Base: models.Base{ID: id}, Allocated: amount}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "POST", "/categories/cat-1/allocate", `{"amount":"250.00"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Equal(money.MustNew("250")) {
			t.Errorf("expected 250, got %s", got)
		}
	})

	t.Run("maps invalid amount", func(t *testing.T) {
		svc := &mockCategoryService{
			allocateFn: func(string, string, money.Amount) (*models.Category, error) {
				return nil, apperrors.ErrInvalidAmount
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "POST", "/categories/cat-1/allocate", `{"amount":"-5"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "POST", "/categories/cat-1/allocate", `{"amount":"lots"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCategoryHandler_SetTarget(t *testing.T) {
	capture := func(got *models.Target) *mockCategoryService {
		return &mockCategoryService{
			setTargetFn: func(_, id string, target models.Target) (*models.Category, error) {
				*got = target
				return &models.Category{Base: models.Base{ID: id}, Target: target}, nil
			},
		}
	}

	t.Run("by date target", func(t *testing.T) {
		var got models.Target
		r := setupCategoryRouter(NewCategoryHandler(capture(&got), testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"by_date","amount":"1200","date":"2025-12-31"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		byDate, ok := got.(models.ByDateTarget)
		if !ok {
			t.Fatalf("expected ByDateTarget, got %T", got)
		}
		if !byDate.Date.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date %v", byDate.Date)
		}
	})

	t.Run("custom target leaves the anchor to the ledger", func(t *testing.T) {
		var got models.Target
		r := setupCategoryRouter(NewCategoryHandler(capture(&got), testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"custom","amount":"300","interval":{"kind":"months","count":3}}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		custom, ok := got.(models.CustomTarget)
		if !ok {
			t.Fatalf("expected CustomTarget, got %T", got)
		}
		if custom.Interval != (recurrence.EveryMonths{N: 3}) || !custom.Anchor.IsZero() {
			t.Errorf("unexpected custom target %+v", custom)
		}
		target := parseJSON(t, rec)["category"].(map[string]interface{})["target"].(map[string]interface{})
		interval := target["interval"].(map[string]interface{})
		if interval["kind"] != "months" || interval["count"] != float64(3) {
			t.Errorf("unexpected interval %v", interval)
		}
	})

	t.Run("custom target without interval", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"custom","amount":"300"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INTERVAL")
	})

	t.Run("zero day interval", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"custom","amount":"300","interval":{"kind":"days","count":0}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INTERVAL")
	})

	t.Run("negative goal", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"monthly","amount":"-1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})

	t.Run("unknown kind", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, testCalendar()))

		rec := doRequest(r, "PUT", "/categories/cat-1/target", `{"kind":"yearly","amount":"1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCategoryHandler_ClearTargetAndProgress(t *testing.T) {
	t.Run("clear drops the target", func(t *testing.T) {
		svc := &mockCategoryService{
			clearTargetFn: func(_, id string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "DELETE", "/categories/cat-1/target", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if _, ok := cat["target"]; ok {
			t.Errorf("expected no target, got %v", cat["target"])
		}
	})

	t.Run("progress uses the calendar clock", func(t *testing.T) {
		var gotNow time.Time
		svc := &mockCategoryService{
			getTargetProgressFn: func(_, id string, now time.Time) (*ledger.TargetProgress, error) {
				gotNow = now
				return &ledger.TargetProgress{CategoryID: id, Kind: models.TargetKindMonthly, Percent: 50}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, testCalendar()))

		rec := doRequest(r, "GET", "/categories/cat-1/target/progress", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotNow.Equal(testNow) {
			t.Errorf("expected %v, got %v", testNow, gotNow)
		}
		progress := parseJSON(t, rec)["progress"].(map[string]interface{})
		if progress["percent"] != float64(50) {
			t.Errorf("expected 50, got %v", progress["percent"])
		}
	})
}
