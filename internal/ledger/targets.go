package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

// maxCycleSteps bounds the walk from a custom target's anchor to today.
const maxCycleSteps = 100000

// TargetProgress reports how far a category is towards its target.
type TargetProgress struct {
	CategoryID string            `json:"category_id"`
	Kind       models.TargetKind `json:"kind"`
	Goal       money.Amount      `json:"goal"`
	// Funded is the available balance clamped to [0, Goal].
	Funded    money.Amount `json:"funded"`
	Remaining money.Amount `json:"remaining"`
	Percent   float64      `json:"percent"`
	DueDate   *time.Time   `json:"due_date,omitempty"`
	// NeededThisMonth is what must still be assigned in the current month to
	// stay on track. For by-date targets the remainder is spread over the
	// months left.
	NeededThisMonth money.Amount `json:"needed_this_month"`
	MonthsLeft      int          `json:"months_left,omitempty"`
	Overdue         bool         `json:"overdue"`
}

// TargetProgress evaluates the category's target as of now. A category without
// a target yields INVALID_INPUT.
func (l *Ledger) TargetProgress(categoryID string, now time.Time) (TargetProgress, error) {
	c, err := l.Category(categoryID)
	if err != nil {
		return TargetProgress{}, err
	}
	if c.Target == nil {
		return TargetProgress{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "category has no target")
	}
	return Progress(c, now, l.opts.Location, l.opts.WeekStart), nil
}

// Progress computes target progress for a category snapshot. All dates are
// evaluated in loc; weeks start on weekStart.
func Progress(c models.Category, now time.Time, loc *time.Location, weekStart time.Weekday) TargetProgress {
	goal := c.Target.GoalAmount()
	funded := money.Clamp(c.Available(), money.Zero, goal)
	remaining := goal.Sub(funded)

	p := TargetProgress{
		CategoryID:      c.ID,
		Kind:            c.Target.Kind(),
		Goal:            goal,
		Funded:          funded,
		Remaining:       remaining,
		Percent:         money.Percent(funded, goal),
		NeededThisMonth: remaining,
	}

	today := recurrence.StartOfDay(now, loc)
	switch t := c.Target.(type) {
	case models.MonthlyTarget:
		due := recurrence.EndOfMonth(today)
		p.DueDate = &due
	case models.WeeklyTarget:
		due := recurrence.StartOfWeek(today, weekStart, loc).AddDate(0, 0, 6)
		p.DueDate = &due
	case models.ByDateTarget:
		due := recurrence.StartOfDay(t.Date, loc)
		p.DueDate = &due
		p.MonthsLeft = monthsLeft(today, due)
		p.Overdue = due.Before(today) && remaining.IsPositive()
		p.NeededThisMonth = remaining.Div(decimal.NewFromInt(int64(p.MonthsLeft))).RoundCeil(money.Scale)
	case models.CustomTarget:
		if due, ok := nextCycleDate(t, today, loc); ok {
			p.DueDate = &due
		}
	case models.NoDateTarget:
	}
	return p
}

// monthsLeft counts calendar months from today's month through due's month,
// inclusive. A due date in the past counts as one month.
func monthsLeft(today, due time.Time) int {
	n := (due.Year()-today.Year())*12 + int(due.Month()-today.Month()) + 1
	if n < 1 {
		return 1
	}
	return n
}

// nextCycleDate returns the first occurrence of the target's interval on or
// after today, counting cycles from the anchor. Day-of-month intervals clamp
// to short months, so day 31 falls on the 30th in a 30-day month.
func nextCycleDate(t models.CustomTarget, today time.Time, loc *time.Location) (time.Time, bool) {
	yesterday := today.AddDate(0, 0, -1)
	cur := recurrence.StartOfDay(t.Anchor, loc)
	if t.Anchor.IsZero() {
		cur = today
	}
	if _, byDay := t.Interval.(recurrence.MonthlyOnDay); byDay {
		// Day-of-month occurrences do not depend on the anchor.
		cur = yesterday
	}
	if past := recurrence.OccurrencesBetween(cur, yesterday, t.Interval, loc, maxCycleSteps); len(past) > 0 {
		cur = past[len(past)-1]
	}
	next := recurrence.NextOccurrence(cur, t.Interval, loc)
	if recurrence.Stalled(cur, next) || next.Before(today) {
		return time.Time{}, false
	}
	return next, true
}
