package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/recurrence"
)

// CreatePlanned stores a recurring template. Its account, counterpart and
// category must exist.
func (l *Ledger) CreatePlanned(ctx context.Context, p models.PlannedTransaction) (models.PlannedTransaction, error) {
	if err := p.Validate(); err != nil {
		return models.PlannedTransaction{}, err
	}
	p.ID = ""
	p.LastProcessedDate = nil

	err := l.mutate(ctx, "create_planned", func(m *mutation) error {
		if _, err := l.writableAccount(p.AccountID); err != nil {
			return err
		}
		if p.ToAccountID != nil {
			if _, err := l.writableAccount(*p.ToAccountID); err != nil {
				return err
			}
		}
		if p.CategoryID != nil {
			if _, err := l.category(*p.CategoryID); err != nil {
				return err
			}
		}

		p.EnsureID(m.now)
		track(m, apperrors.EntityPlannedTransaction, l.planned, p.ID)
		stored := p
		l.planned[p.ID] = &stored
		return nil
	})
	if err != nil {
		return models.PlannedTransaction{}, err
	}

	l.log.Infow("Created planned transaction",
		"scope", l.scope,
		"planned_id", p.ID,
		"type", p.Type,
		"recurrence", p.Recurrence.String(),
		"next_due_date", p.NextDueDate.Format(time.DateOnly),
	)
	return p, nil
}

// SetPlannedActive pauses or resumes a planned transaction.
func (l *Ledger) SetPlannedActive(ctx context.Context, plannedID string, active bool) (models.PlannedTransaction, error) {
	var out models.PlannedTransaction
	err := l.mutate(ctx, "set_planned_active", func(m *mutation) error {
		p, err := l.plannedByID(plannedID)
		if err != nil {
			return err
		}
		m.editPlanned(p).IsActive = active
		out = *p
		return nil
	})
	return out, err
}

// DeletePlanned removes a planned transaction. Transactions it already
// produced are kept.
func (l *Ledger) DeletePlanned(ctx context.Context, plannedID string) error {
	return l.mutate(ctx, "delete_planned", func(m *mutation) error {
		if _, err := l.plannedByID(plannedID); err != nil {
			return err
		}
		track(m, apperrors.EntityPlannedTransaction, l.planned, plannedID)
		delete(l.planned, plannedID)
		return nil
	})
}

// ApplyPlanned materializes the occurrence of a planned transaction that was
// due at due, dates the resulting transaction effectiveDate and advances the
// schedule, all in one commit.
//
// The pair (plannedID, due) identifies the occurrence. If it was already
// recorded ApplyPlanned returns DUPLICATE_APPLICATION; when the schedule still
// points at that occurrence it is advanced first. A rule that cannot move past
// due fails with INVALID_INTERVAL and nothing is written.
func (l *Ledger) ApplyPlanned(ctx context.Context, plannedID string, due, effectiveDate time.Time) (models.Transaction, error) {
	var (
		tx     *models.Transaction
		healed bool
	)
	err := l.mutate(ctx, "apply_planned", func(m *mutation) error {
		p, err := l.plannedByID(plannedID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("planned transaction %s is paused", p.Title))
		}

		key := models.OccurrenceKey{PlannedID: plannedID, Due: due.UTC()}
		if _, dup := l.applied[key]; dup {
			if !p.NextDueDate.Equal(due) {
				return duplicateOccurrence(key)
			}
			if err := l.advance(m, p, due); err != nil {
				return err
			}
			healed = true
			return nil
		}
		if p.NextDueDate.After(due) {
			return duplicateOccurrence(key)
		}
		if p.NextDueDate.Before(due) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("occurrence %s is not the next due occurrence %s", due.Format(time.DateOnly), p.NextDueDate.Format(time.DateOnly)))
		}

		next := recurrence.NextOccurrence(due, p.Recurrence, l.opts.Location)
		if recurrence.Stalled(due, next) {
			return stalled(p)
		}
		tx = p.Materialize(effectiveDate)
		if err := l.applyTransaction(m, tx); err != nil {
			return err
		}
		return l.advance(m, p, due)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if healed {
		l.log.Warnw("Advanced schedule of an occurrence that was already recorded",
			"scope", l.scope,
			"planned_id", plannedID,
			"occurrence", due.Format(time.DateOnly),
		)
		return models.Transaction{}, duplicateOccurrence(models.OccurrenceKey{PlannedID: plannedID, Due: due.UTC()})
	}
	return *tx, nil
}

// SkipPlanned advances the schedule past the occurrence due at due without
// recording a transaction.
func (l *Ledger) SkipPlanned(ctx context.Context, plannedID string, due time.Time) (models.PlannedTransaction, error) {
	var out models.PlannedTransaction
	err := l.mutate(ctx, "skip_planned", func(m *mutation) error {
		p, err := l.plannedByID(plannedID)
		if err != nil {
			return err
		}
		if !p.NextDueDate.Equal(due) {
			return duplicateOccurrence(models.OccurrenceKey{PlannedID: plannedID, Due: due.UTC()})
		}
		if err := l.advance(m, p, due); err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

func (l *Ledger) advance(m *mutation, p *models.PlannedTransaction, due time.Time) error {
	next := recurrence.NextOccurrence(due, p.Recurrence, l.opts.Location)
	if recurrence.Stalled(due, next) {
		return stalled(p)
	}
	processed := due
	m.editPlanned(p)
	p.LastProcessedDate = &processed
	p.NextDueDate = next
	return nil
}

func duplicateOccurrence(key models.OccurrenceKey) error {
	return apperrors.WithMessage(apperrors.ErrDuplicateApplication,
		fmt.Sprintf("occurrence %s of planned transaction %s was already processed", key.Due.Format(time.DateOnly), key.PlannedID))
}

func stalled(p *models.PlannedTransaction) error {
	return apperrors.WithMessage(apperrors.ErrScheduleStalled,
		fmt.Sprintf("schedule of %s cannot advance past %s", p.Title, p.NextDueDate.Format(time.DateOnly)))
}

// PlannedTransactions returns all planned transactions ordered by next due
// date.
func (l *Ledger) PlannedTransactions() []models.PlannedTransaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.PlannedTransaction, 0, len(l.planned))
	for _, p := range l.planned {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Planned returns a snapshot of one planned transaction.
func (l *Ledger) Planned(plannedID string) (models.PlannedTransaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, err := l.plannedByID(plannedID)
	if err != nil {
		return models.PlannedTransaction{}, err
	}
	return *p, nil
}
