package ledger

import (
	"errors"
	"testing"
	"time"

	"envelope/internal/models"
	"envelope/internal/recurrence"
	"envelope/internal/repository"
	"envelope/internal/testutil"
)

func TestCreatePlanned(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		b := setupBudget(t)
		p, err := b.ledger.CreatePlanned(ctx, models.PlannedTransaction{
			Title:       "Salary",
			Amount:      testutil.Amount("3000"),
			CategoryID:  testutil.Ptr(b.groceries.ID),
			AccountID:   b.checking.ID,
			IsIncome:    true,
			Type:        models.PlannedTypeManual,
			Recurrence:  recurrence.EveryWeeks{N: 2},
			IsActive:    true,
			NextDueDate: day1,
		})
		testutil.AssertNoError(t, err)
		if p.ID == "" {
			t.Fatal("expected planned transaction ID")
		}
	})

	t.Run("invalid_recurrence", func(t *testing.T) {
		b := setupBudget(t)
		_, err := b.ledger.CreatePlanned(ctx, models.PlannedTransaction{
			Title:       "Broken",
			Amount:      testutil.Amount("1"),
			CategoryID:  testutil.Ptr(b.groceries.ID),
			AccountID:   b.checking.ID,
			Type:        models.PlannedTypeAutomatic,
			Recurrence:  recurrence.EveryMonths{N: 0},
			IsActive:    true,
			NextDueDate: day1,
		})
		testutil.AssertAppError(t, err, "INVALID_INTERVAL")
	})

	t.Run("unknown_category", func(t *testing.T) {
		b := setupBudget(t)
		_, err := b.ledger.CreatePlanned(ctx, models.PlannedTransaction{
			Title:       "Gym",
			Amount:      testutil.Amount("30"),
			CategoryID:  testutil.Ptr("missing"),
			AccountID:   b.checking.ID,
			Type:        models.PlannedTypeAutomatic,
			Recurrence:  recurrence.Monthly{},
			IsActive:    true,
			NextDueDate: day1,
		})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestApplyPlanned(t *testing.T) {
	jan31 := date(2025, time.January, 31)
	feb1 := date(2025, time.February, 1)

	t.Run("materializes_and_advances_with_frozen_clamp", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)
		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)
		b.ledger = l

		tx, err := l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertNoError(t, err)

		if !tx.Date.Equal(feb1) {
			t.Errorf("expected transaction dated %s, got %s", feb1, tx.Date)
		}
		testutil.AssertAmount(t, balanceOf(t, l, b.checking.ID), "900")

		p, _ := l.Planned(planned.ID)
		if !p.NextDueDate.Equal(date(2025, time.February, 28)) {
			t.Fatalf("expected next due Feb 28, got %s", p.NextDueDate)
		}
		if p.LastProcessedDate == nil || !p.LastProcessedDate.Equal(jan31) {
			t.Errorf("expected last processed Jan 31, got %v", p.LastProcessedDate)
		}

		_, err = l.ApplyPlanned(ctx, planned.ID, p.NextDueDate, p.NextDueDate)
		testutil.AssertNoError(t, err)
		p, _ = l.Planned(planned.ID)
		if !p.NextDueDate.Equal(date(2025, time.March, 28)) {
			t.Errorf("expected next due Mar 28, got %s", p.NextDueDate)
		}
		assertPersisted(t, b)
	})

	t.Run("second_application_is_rejected", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)
		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)

		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertNoError(t, err)
		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertAppError(t, err, "DUPLICATE_APPLICATION")

		txs, _ := l.TransactionsForAccount(b.checking.ID, time.Time{}, time.Time{})
		if len(txs) != 1 {
			t.Errorf("expected exactly one transaction, got %d", len(txs))
		}
	})

	t.Run("recorded_occurrence_with_stale_schedule_heals", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)

		// The transaction was stored but the schedule never advanced.
		tx := planned.Materialize(feb1)
		tx.EnsureID(testutil.Now)
		cs := repository.NewChangeSet()
		cs.SaveTransaction(*tx)
		testutil.AssertNoError(t, b.repo.Apply(ctx, b.scope, cs))

		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)

		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertAppError(t, err, "DUPLICATE_APPLICATION")

		p, _ := l.Planned(planned.ID)
		if !p.NextDueDate.Equal(date(2025, time.February, 28)) {
			t.Errorf("expected schedule to advance to Feb 28, got %s", p.NextDueDate)
		}
		txs, _ := l.TransactionsForAccount(b.checking.ID, time.Time{}, time.Time{})
		if len(txs) != 1 {
			t.Errorf("expected one transaction, got %d", len(txs))
		}
	})

	t.Run("stalled_schedule_writes_nothing", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)
		planned.Recurrence = recurrence.EveryDays{N: 0}
		cs := repository.NewChangeSet()
		cs.SavePlanned(*planned)
		testutil.AssertNoError(t, b.repo.Apply(ctx, b.scope, cs))

		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)
		commits := b.repo.AppliedCount()

		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertAppError(t, err, "INVALID_INTERVAL")

		if b.repo.AppliedCount() != commits {
			t.Error("expected no commit for a stalled schedule")
		}
		testutil.AssertAmount(t, balanceOf(t, l, b.checking.ID), "1000")
	})

	t.Run("paused", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)
		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)

		_, err = l.SetPlannedActive(ctx, planned.ID, false)
		testutil.AssertNoError(t, err)
		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = l.SetPlannedActive(ctx, planned.ID, true)
		testutil.AssertNoError(t, err)
		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertNoError(t, err)
	})

	t.Run("persistence_failure_keeps_schedule", func(t *testing.T) {
		b := setupBudget(t)
		planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", jan31)
		l, err := Open(ctx, b.scope, b.repo, testOptions())
		testutil.AssertNoError(t, err)

		b.repo.FailApply(errors.New("offline"))
		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertAppError(t, err, "PERSISTENCE_FAILURE")

		p, _ := l.Planned(planned.ID)
		if !p.NextDueDate.Equal(jan31) || p.LastProcessedDate != nil {
			t.Errorf("expected schedule to stay at Jan 31, got %s", p.NextDueDate)
		}

		// Retrying the same occurrence after recovery succeeds exactly once.
		b.repo.FailApply(nil)
		_, err = l.ApplyPlanned(ctx, planned.ID, jan31, feb1)
		testutil.AssertNoError(t, err)
		testutil.AssertAmount(t, balanceOf(t, l, b.checking.ID), "900")
	})

	t.Run("not_found", func(t *testing.T) {
		b := setupBudget(t)
		_, err := b.ledger.ApplyPlanned(ctx, "missing", jan31, feb1)
		testutil.AssertAppError(t, err, "PLANNED_TRANSACTION_NOT_FOUND")
	})
}

func TestSkipPlanned(t *testing.T) {
	b := setupBudget(t)
	due := date(2025, time.January, 31)
	planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", due)
	l, err := Open(ctx, b.scope, b.repo, testOptions())
	testutil.AssertNoError(t, err)

	p, err := l.SkipPlanned(ctx, planned.ID, due)
	testutil.AssertNoError(t, err)
	if !p.NextDueDate.Equal(date(2025, time.February, 28)) {
		t.Errorf("expected next due Feb 28, got %s", p.NextDueDate)
	}
	testutil.AssertAmount(t, balanceOf(t, l, b.checking.ID), "1000")

	_, err = l.SkipPlanned(ctx, planned.ID, due)
	testutil.AssertAppError(t, err, "DUPLICATE_APPLICATION")
}

func TestDeletePlanned(t *testing.T) {
	b := setupBudget(t)
	planned := testutil.SeedPlanned(t, b.repo, b.scope, b.checking.ID, b.groceries.ID, "100", day1)
	l, err := Open(ctx, b.scope, b.repo, testOptions())
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, l.DeletePlanned(ctx, planned.ID))
	_, err = l.Planned(planned.ID)
	testutil.AssertAppError(t, err, "PLANNED_TRANSACTION_NOT_FOUND")
}
