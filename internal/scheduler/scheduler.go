// Package scheduler finds planned transactions that have come due and turns
// them into ledger transactions.
//
// Automatic items are applied by ProcessDue, one occurrence at a time, so a
// budget that was not processed for a while catches up in order. Manual items
// are never applied here; NotifyManualDue only announces them.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"envelope/internal/ledger"
	"envelope/internal/logger"
	"envelope/internal/models"
	"envelope/internal/notify"
)

// DefaultMaxCatchUp bounds how many occurrences of one planned transaction a
// single ProcessDue run applies.
const DefaultMaxCatchUp = 24

// Options configures a Scheduler.
type Options struct {
	// MaxCatchUp bounds occurrences applied per planned transaction and run.
	MaxCatchUp int
	// Publisher receives manual-due reminders. Defaults to a LogPublisher.
	Publisher notify.Publisher
	// Clock stamps reminder events. Defaults to time.Now.
	Clock  func() time.Time
	Logger *zap.SugaredLogger
}

// Ledgers resolves the ledger of a budget scope.
type Ledgers interface {
	Get(ctx context.Context, scope string) (*ledger.Ledger, error)
}

// Scheduler evaluates and processes planned transactions per budget scope.
type Scheduler struct {
	ledgers    Ledgers
	publisher  notify.Publisher
	maxCatchUp int
	clock      func() time.Time
	log        *zap.SugaredLogger
}

// New creates a Scheduler over ledgers.
func New(ledgers Ledgers, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logger.Named("scheduler")
	}
	if opts.MaxCatchUp <= 0 {
		opts.MaxCatchUp = DefaultMaxCatchUp
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.NewLogPublisher(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Scheduler{
		ledgers:    ledgers,
		publisher:  opts.Publisher,
		maxCatchUp: opts.MaxCatchUp,
		clock:      opts.Clock,
		log:        opts.Logger,
	}
}

// Result reports the outcome of one occurrence processed by ProcessDue.
type Result struct {
	PlannedID     string    `json:"planned_id"`
	Title         string    `json:"title"`
	Occurrence    time.Time `json:"occurrence"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Err           error     `json:"-"`
}

// Failed reports whether the occurrence could not be applied.
func (r Result) Failed() bool { return r.Err != nil }

// DueAutomatic returns the active automatic planned transactions due at now.
func (s *Scheduler) DueAutomatic(ctx context.Context, scope string, now time.Time) ([]models.PlannedTransaction, error) {
	return s.due(ctx, scope, now, models.PlannedTypeAutomatic)
}

// DueManual returns the active manual planned transactions due at now.
func (s *Scheduler) DueManual(ctx context.Context, scope string, now time.Time) ([]models.PlannedTransaction, error) {
	return s.due(ctx, scope, now, models.PlannedTypeManual)
}

func (s *Scheduler) due(ctx context.Context, scope string, now time.Time, kind models.PlannedType) ([]models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []models.PlannedTransaction
	for _, p := range l.PlannedTransactions() {
		if p.Type == kind && p.IsDue(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Process applies the occurrence planned currently points at, dated
// effectiveDate. The occurrence is identified by the planned id and the
// NextDueDate of the given snapshot, so a stale snapshot fails with
// DUPLICATE_APPLICATION instead of recording twice.
func (s *Scheduler) Process(ctx context.Context, scope string, planned models.PlannedTransaction, effectiveDate time.Time) (models.Transaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return models.Transaction{}, err
	}
	return l.ApplyPlanned(ctx, planned.ID, planned.NextDueDate, effectiveDate)
}

// ProcessDue applies every due occurrence of every due automatic planned
// transaction. Each transaction is dated on its occurrence. Failures are
// reported per item and do not stop the run; a failing planned transaction is
// not retried within the same run. Cancellation is checked between
// occurrences and returns the results gathered so far with ctx.Err().
func (s *Scheduler) ProcessDue(ctx context.Context, scope string, now time.Time) ([]Result, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	due, err := s.DueAutomatic(ctx, scope, now)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Processing due planned transactions",
		"scope", scope,
		"count", len(due),
		"now", now,
	)

	var (
		results   []Result
		processed int
		failed    int
	)
	for _, item := range due {
		for n := 0; n < s.maxCatchUp; n++ {
			if err := ctx.Err(); err != nil {
				s.log.Warnw("Processing cancelled",
					"scope", scope,
					"processed", processed,
					"failed", failed,
				)
				return results, err
			}

			current, err := l.Planned(item.ID)
			if err != nil {
				results = append(results, Result{PlannedID: item.ID, Title: item.Title, Occurrence: item.NextDueDate, Err: err})
				failed++
				break
			}
			if !current.IsDue(now) || current.Type != models.PlannedTypeAutomatic {
				break
			}

			occurrence := current.NextDueDate
			tx, err := s.Process(ctx, scope, current, occurrence)
			res := Result{PlannedID: current.ID, Title: current.Title, Occurrence: occurrence, TransactionID: tx.ID, Err: err}
			results = append(results, res)
			if err != nil {
				s.log.Errorw("Failed to process planned transaction",
					"scope", scope,
					"planned_id", current.ID,
					"occurrence", occurrence.Format(time.DateOnly),
					"error", err,
				)
				failed++
				break
			}
			processed++
			s.log.Infow("Processed planned transaction",
				"scope", scope,
				"planned_id", current.ID,
				"transaction_id", tx.ID,
				"occurrence", occurrence.Format(time.DateOnly),
			)

			if n == s.maxCatchUp-1 {
				s.log.Warnw("Catch-up limit reached",
					"scope", scope,
					"planned_id", current.ID,
					"limit", s.maxCatchUp,
				)
			}
		}
	}

	s.log.Infow("Processing complete",
		"scope", scope,
		"processed", processed,
		"failed", failed,
	)
	return results, nil
}

// Pause deactivates a planned transaction. It stays out of due lists until
// resumed.
func (s *Scheduler) Pause(ctx context.Context, scope, plannedID string) (models.PlannedTransaction, error) {
	return s.setActive(ctx, scope, plannedID, false)
}

// Resume reactivates a paused planned transaction. Occurrences missed while
// paused are still due.
func (s *Scheduler) Resume(ctx context.Context, scope, plannedID string) (models.PlannedTransaction, error) {
	return s.setActive(ctx, scope, plannedID, true)
}

func (s *Scheduler) setActive(ctx context.Context, scope, plannedID string, active bool) (models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return models.PlannedTransaction{}, err
	}
	return l.SetPlannedActive(ctx, plannedID, active)
}

// NotifyManualDue publishes one reminder per due manual planned transaction
// and returns the events. Publishing stops at the first failure.
func (s *Scheduler) NotifyManualDue(ctx context.Context, scope string, now time.Time) ([]notify.ManualDueEvent, error) {
	due, err := s.DueManual(ctx, scope, now)
	if err != nil {
		return nil, err
	}

	events := make([]notify.ManualDueEvent, 0, len(due))
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		event := notify.ManualDueEvent{
			Scope:      scope,
			PlannedID:  p.ID,
			Title:      p.Title,
			Amount:     p.Amount.StringFixed(2),
			IsIncome:   p.IsIncome,
			DueDate:    p.NextDueDate,
			NotifiedAt: s.clock(),
		}
		if err := s.publisher.PublishManualDue(ctx, event); err != nil {
			s.log.Errorw("Failed to publish manual due reminder",
				"scope", scope,
				"planned_id", p.ID,
				"error", err,
			)
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}
