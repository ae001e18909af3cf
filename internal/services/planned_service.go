package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"envelope/internal/ledger"
	"envelope/internal/models"
	"envelope/internal/notify"
	"envelope/internal/repository"
	"envelope/internal/scheduler"
)

// plannedService handles planned transactions and runs their scheduler.
type plannedService struct {
	ledgers   *ledger.Registry
	repo      repository.Repository
	scheduler *scheduler.Scheduler
	log       *zap.SugaredLogger
}

// NewPlannedService creates a new PlannedServicer.
func NewPlannedService(ledgers *ledger.Registry, repo repository.Repository, sched *scheduler.Scheduler, log *zap.SugaredLogger) PlannedServicer {
	return &plannedService{ledgers: ledgers, repo: repo, scheduler: sched, log: log}
}

func (s *plannedService) CreatePlanned(ctx context.Context, scope string, p models.PlannedTransaction) (*models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	created, err := l.CreatePlanned(ctx, p)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetPlanned lists planned transactions ordered by next due date.
func (s *plannedService) GetPlanned(ctx context.Context, scope string) ([]models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	return l.PlannedTransactions(), nil
}

func (s *plannedService) GetPlannedByID(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	p, err := l.Planned(plannedID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *plannedService) PausePlanned(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	p, err := s.scheduler.Pause(ctx, scope, plannedID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *plannedService) ResumePlanned(ctx context.Context, scope, plannedID string) (*models.PlannedTransaction, error) {
	p, err := s.scheduler.Resume(ctx, scope, plannedID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ConfirmPlanned records the occurrence due at due, dated effectiveDate. A
// zero due confirms the occurrence the schedule currently points at.
func (s *plannedService) ConfirmPlanned(ctx context.Context, scope, plannedID string, due, effectiveDate time.Time) (*models.Transaction, error) {
	p, err := s.GetPlannedByID(ctx, scope, plannedID)
	if err != nil {
		return nil, err
	}
	if !due.IsZero() {
		p.NextDueDate = due
	}
	if effectiveDate.IsZero() {
		effectiveDate = p.NextDueDate
	}
	tx, err := s.scheduler.Process(ctx, scope, *p, effectiveDate)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// SkipPlanned advances past the occurrence due at due without recording it. A
// zero due skips the current occurrence.
func (s *plannedService) SkipPlanned(ctx context.Context, scope, plannedID string, due time.Time) (*models.PlannedTransaction, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	if due.IsZero() {
		current, err := l.Planned(plannedID)
		if err != nil {
			return nil, err
		}
		due = current.NextDueDate
	}
	p, err := l.SkipPlanned(ctx, plannedID, due)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *plannedService) DeletePlanned(ctx context.Context, scope, plannedID string) error {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return err
	}
	return l.DeletePlanned(ctx, plannedID)
}

// RunDue applies every due automatic occurrence of one budget.
func (s *plannedService) RunDue(ctx context.Context, scope string, now time.Time) ([]scheduler.Result, error) {
	return s.scheduler.ProcessDue(ctx, scope, now)
}

// RunAllDue runs the scheduler for every budget with active planned
// transactions. A budget that fails to load is logged and skipped.
func (s *plannedService) RunAllDue(ctx context.Context, now time.Time) (map[string][]scheduler.Result, error) {
	scopes, err := s.repo.PlannedScopes(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]scheduler.Result, len(scopes))
	for _, scope := range scopes {
		results, err := s.scheduler.ProcessDue(ctx, scope, now)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			s.log.Errorw("Failed to run scheduler for budget", "scope", scope, "error", err)
			continue
		}
		out[scope] = results
	}
	return out, nil
}

func (s *plannedService) GetManualDue(ctx context.Context, scope string, now time.Time) ([]models.PlannedTransaction, error) {
	return s.scheduler.DueManual(ctx, scope, now)
}

func (s *plannedService) NotifyManualDue(ctx context.Context, scope string, now time.Time) ([]notify.ManualDueEvent, error) {
	return s.scheduler.NotifyManualDue(ctx, scope, now)
}
