package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/notify"
	"envelope/internal/recurrence"
	"envelope/internal/repository"
	"envelope/internal/testutil"
)

var ctx = context.Background()

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type recordingPublisher struct {
	events []notify.ManualDueEvent
	err    error
}

func (p *recordingPublisher) PublishManualDue(_ context.Context, event notify.ManualDueEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	scheduler *Scheduler
	registry  *ledger.Registry
	repo      *repository.MemoryRepository
	publisher *recordingPublisher
	scope     string
	checking  *models.Account
	savings   *models.Account
	rent      *models.Category
}

func setup(t *testing.T, maxCatchUp int) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	scope := testutil.NewScope()
	f := &fixture{repo: repo, scope: scope, publisher: &recordingPublisher{}}
	f.checking = testutil.SeedAccount(t, repo, scope, "Checking", "5000")
	f.savings = testutil.SeedAccount(t, repo, scope, "Savings", "0")
	group := testutil.SeedCategoryGroup(t, repo, scope, "Bills", false)
	f.rent = testutil.SeedCategory(t, repo, scope, group.ID, "Rent", "0")

	log := zap.NewNop().Sugar()
	f.registry = ledger.NewRegistry(repo, ledger.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return testutil.Now },
		Logger:   log,
	})
	f.scheduler = New(f.registry, Options{
		MaxCatchUp: maxCatchUp,
		Publisher:  f.publisher,
		Clock:      func() time.Time { return testutil.Now },
		Logger:     log,
	})
	return f
}

func (f *fixture) ledger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := f.registry.Get(ctx, f.scope)
	testutil.AssertNoError(t, err)
	return l
}

func (f *fixture) planned(t *testing.T, id string) models.PlannedTransaction {
	t.Helper()
	p, err := f.ledger(t).Planned(id)
	testutil.AssertNoError(t, err)
	return p
}

func (f *fixture) createManual(t *testing.T, title string, due time.Time) models.PlannedTransaction {
	t.Helper()
	p, err := f.ledger(t).CreatePlanned(ctx, models.PlannedTransaction{
		Title:       title,
		Amount:      testutil.Amount("3000"),
		AccountID:   f.checking.ID,
		CategoryID:  testutil.Ptr(f.rent.ID),
		IsIncome:    true,
		Type:        models.PlannedTypeManual,
		Recurrence:  recurrence.EveryWeeks{N: 2},
		IsActive:    true,
		NextDueDate: due,
	})
	testutil.AssertNoError(t, err)
	return p
}

func TestDueFilters(t *testing.T) {
	f := setup(t, 0)
	auto := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "1200", date(2025, time.March, 1))
	future := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "50", date(2025, time.April, 1))
	manual := f.createManual(t, "Salary", date(2025, time.March, 1))
	now := date(2025, time.March, 15)

	t.Run("automatic", func(t *testing.T) {
		due, err := f.scheduler.DueAutomatic(ctx, f.scope, now)
		testutil.AssertNoError(t, err)
		if len(due) != 1 || due[0].ID != auto.ID {
			t.Fatalf("expected only %s to be due, got %+v", auto.ID, due)
		}
	})

	t.Run("due_on_the_day", func(t *testing.T) {
		due, err := f.scheduler.DueAutomatic(ctx, f.scope, date(2025, time.April, 1))
		testutil.AssertNoError(t, err)
		if len(due) != 2 || due[1].ID != future.ID {
			t.Fatalf("expected both automatic items due on Apr 1, got %d", len(due))
		}
	})

	t.Run("manual", func(t *testing.T) {
		due, err := f.scheduler.DueManual(ctx, f.scope, now)
		testutil.AssertNoError(t, err)
		if len(due) != 1 || due[0].ID != manual.ID {
			t.Fatalf("expected only %s to be due, got %+v", manual.ID, due)
		}
	})

	t.Run("paused_items_are_not_due", func(t *testing.T) {
		_, err := f.scheduler.Pause(ctx, f.scope, auto.ID)
		testutil.AssertNoError(t, err)

		due, err := f.scheduler.DueAutomatic(ctx, f.scope, now)
		testutil.AssertNoError(t, err)
		if len(due) != 0 {
			t.Errorf("expected nothing due while paused, got %d", len(due))
		}

		resumed, err := f.scheduler.Resume(ctx, f.scope, auto.ID)
		testutil.AssertNoError(t, err)
		if !resumed.IsActive {
			t.Error("expected planned transaction to be active again")
		}
		due, err = f.scheduler.DueAutomatic(ctx, f.scope, now)
		testutil.AssertNoError(t, err)
		if len(due) != 1 {
			t.Errorf("expected the missed occurrence to be due after resume, got %d", len(due))
		}
	})
}

func TestProcess(t *testing.T) {
	t.Run("frozen_month_end_clamp", func(t *testing.T) {
		f := setup(t, 0)
		planned := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "1200", date(2025, time.January, 31))

		tx, err := f.scheduler.Process(ctx, f.scope, f.planned(t, planned.ID), date(2025, time.February, 1))
		testutil.AssertNoError(t, err)
		if tx.ID == "" {
			t.Fatal("expected a transaction ID")
		}
		testutil.AssertAmount(t, tx.Amount, "1200")

		p := f.planned(t, planned.ID)
		if !p.NextDueDate.Equal(date(2025, time.February, 28)) {
			t.Fatalf("expected next due Feb 28, got %s", p.NextDueDate.Format(time.DateOnly))
		}
		if p.LastProcessedDate == nil || !p.LastProcessedDate.Equal(date(2025, time.January, 31)) {
			t.Errorf("expected last processed Jan 31, got %v", p.LastProcessedDate)
		}

		_, err = f.scheduler.Process(ctx, f.scope, p, date(2025, time.March, 1))
		testutil.AssertNoError(t, err)
		if next := f.planned(t, planned.ID).NextDueDate; !next.Equal(date(2025, time.March, 28)) {
			t.Errorf("expected next due Mar 28, got %s", next.Format(time.DateOnly))
		}
	})

	t.Run("same_snapshot_twice_records_once", func(t *testing.T) {
		f := setup(t, 0)
		planned := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "1200", date(2025, time.March, 1))
		snapshot := f.planned(t, planned.ID)

		_, err := f.scheduler.Process(ctx, f.scope, snapshot, snapshot.NextDueDate)
		testutil.AssertNoError(t, err)
		_, err = f.scheduler.Process(ctx, f.scope, snapshot, snapshot.NextDueDate)
		testutil.AssertAppError(t, err, "DUPLICATE_APPLICATION")

		txs, err := f.ledger(t).TransactionsForAccount(f.checking.ID, time.Time{}, time.Time{})
		testutil.AssertNoError(t, err)
		if len(txs) != 1 {
			t.Errorf("expected one transaction, got %d", len(txs))
		}
	})

	t.Run("unknown_planned_transaction", func(t *testing.T) {
		f := setup(t, 0)
		_, err := f.scheduler.Process(ctx, f.scope, models.PlannedTransaction{Base: models.Base{ID: "missing"}}, testutil.Now)
		testutil.AssertAppError(t, err, "PLANNED_TRANSACTION_NOT_FOUND")
	})
}

func TestProcessDue(t *testing.T) {
	t.Run("catches_up_in_order", func(t *testing.T) {
		f := setup(t, 0)
		planned := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.January, 31))

		results, err := f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.May, 1))
		testutil.AssertNoError(t, err)

		want := []time.Time{
			date(2025, time.January, 31),
			date(2025, time.February, 28),
			date(2025, time.March, 28),
			date(2025, time.April, 28),
		}
		if len(results) != len(want) {
			t.Fatalf("expected %d results, got %d", len(want), len(results))
		}
		for i, w := range want {
			if results[i].Failed() {
				t.Errorf("result %d failed: %v", i, results[i].Err)
			}
			if !results[i].Occurrence.Equal(w) {
				t.Errorf("result %d: expected occurrence %s, got %s", i, w.Format(time.DateOnly), results[i].Occurrence.Format(time.DateOnly))
			}
		}

		tx, err := f.ledger(t).Transaction(results[1].TransactionID)
		testutil.AssertNoError(t, err)
		if !tx.Date.Equal(want[1]) {
			t.Errorf("expected catch-up transaction dated on its occurrence, got %s", tx.Date.Format(time.DateOnly))
		}
		if next := f.planned(t, planned.ID).NextDueDate; !next.Equal(date(2025, time.May, 28)) {
			t.Errorf("expected next due May 28, got %s", next.Format(time.DateOnly))
		}

		bal, err := f.ledger(t).AccountBalance(f.checking.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertAmount(t, bal, "4600")
	})

	t.Run("second_run_is_a_no_op", func(t *testing.T) {
		f := setup(t, 0)
		testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.March, 1))
		now := date(2025, time.March, 15)

		first, err := f.scheduler.ProcessDue(ctx, f.scope, now)
		testutil.AssertNoError(t, err)
		second, err := f.scheduler.ProcessDue(ctx, f.scope, now)
		testutil.AssertNoError(t, err)

		if len(first) != 1 || len(second) != 0 {
			t.Errorf("expected 1 then 0 results, got %d then %d", len(first), len(second))
		}
	})

	t.Run("catch_up_is_bounded", func(t *testing.T) {
		f := setup(t, 2)
		planned := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.January, 1))

		results, err := f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.June, 1))
		testutil.AssertNoError(t, err)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if next := f.planned(t, planned.ID).NextDueDate; !next.Equal(date(2025, time.March, 1)) {
			t.Errorf("expected next due Mar 1, got %s", next.Format(time.DateOnly))
		}
	})

	t.Run("failure_is_reported_per_item", func(t *testing.T) {
		f := setup(t, 0)
		broken := testutil.SeedPlanned(t, f.repo, f.scope, f.savings.ID, f.rent.ID, "100", date(2025, time.March, 1))
		healthy := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.March, 2))
		_, err := f.ledger(t).ArchiveAccount(ctx, f.savings.ID)
		testutil.AssertNoError(t, err)

		results, err := f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.March, 15))
		testutil.AssertNoError(t, err)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}

		byID := map[string]Result{}
		for _, r := range results {
			byID[r.PlannedID] = r
		}
		testutil.AssertAppError(t, byID[broken.ID].Err, "ACCOUNT_ARCHIVED")
		if byID[healthy.ID].Failed() {
			t.Errorf("expected healthy item to be processed, got %v", byID[healthy.ID].Err)
		}
		if next := f.planned(t, broken.ID).NextDueDate; !next.Equal(date(2025, time.March, 1)) {
			t.Errorf("expected failed item to keep its due date, got %s", next.Format(time.DateOnly))
		}
	})

	t.Run("persistence_failure_leaves_schedule", func(t *testing.T) {
		f := setup(t, 0)
		planned := testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.March, 1))
		f.ledger(t)
		f.repo.FailApply(errors.New("disk full"))

		results, err := f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.March, 15))
		testutil.AssertNoError(t, err)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		testutil.AssertAppError(t, results[0].Err, "PERSISTENCE_FAILURE")

		f.repo.FailApply(nil)
		results, err = f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.March, 15))
		testutil.AssertNoError(t, err)
		if len(results) != 1 || results[0].Failed() {
			t.Fatalf("expected the retry to succeed, got %+v", results)
		}
		if next := f.planned(t, planned.ID).NextDueDate; !next.Equal(date(2025, time.April, 1)) {
			t.Errorf("expected next due Apr 1, got %s", next.Format(time.DateOnly))
		}
	})

	t.Run("manual_items_are_never_applied", func(t *testing.T) {
		f := setup(t, 0)
		manual := f.createManual(t, "Salary", date(2025, time.March, 1))

		results, err := f.scheduler.ProcessDue(ctx, f.scope, date(2025, time.March, 15))
		testutil.AssertNoError(t, err)
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
		if next := f.planned(t, manual.ID).NextDueDate; !next.Equal(date(2025, time.March, 1)) {
			t.Errorf("expected manual item to stay due, got %s", next.Format(time.DateOnly))
		}
	})

	t.Run("cancelled_context_stops_between_items", func(t *testing.T) {
		f := setup(t, 0)
		testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.March, 1))
		f.ledger(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		results, err := f.scheduler.ProcessDue(cancelled, f.scope, date(2025, time.March, 15))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}

func TestNotifyManualDue(t *testing.T) {
	t.Run("publishes_due_manual_items", func(t *testing.T) {
		f := setup(t, 0)
		testutil.SeedPlanned(t, f.repo, f.scope, f.checking.ID, f.rent.ID, "100", date(2025, time.March, 1))
		manual := f.createManual(t, "Salary", date(2025, time.March, 1))
		f.createManual(t, "Bonus", date(2025, time.December, 1))

		events, err := f.scheduler.NotifyManualDue(ctx, f.scope, date(2025, time.March, 15))
		testutil.AssertNoError(t, err)
		if len(events) != 1 || len(f.publisher.events) != 1 {
			t.Fatalf("expected one event, got %d returned and %d published", len(events), len(f.publisher.events))
		}
		e := f.publisher.events[0]
		if e.PlannedID != manual.ID || e.Scope != f.scope || e.Amount != "3000.00" || !e.IsIncome {
			t.Errorf("unexpected event %+v", e)
		}
		if !e.NotifiedAt.Equal(testutil.Now) {
			t.Errorf("expected event stamped with the clock, got %s", e.NotifiedAt)
		}
	})

	t.Run("publisher_failure", func(t *testing.T) {
		f := setup(t, 0)
		f.createManual(t, "Salary", date(2025, time.March, 1))
		f.publisher.err = errors.New("broker down")

		events, err := f.scheduler.NotifyManualDue(ctx, f.scope, date(2025, time.March, 15))
		if err == nil {
			t.Fatal("expected publisher error")
		}
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
	})
}
