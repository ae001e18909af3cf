package models

import (
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

// TargetKind names a Target variant. It is used for reporting only; storage
// encodes variants in the repository package.
type TargetKind string

const (
	TargetKindMonthly TargetKind = "monthly"
	TargetKindWeekly  TargetKind = "weekly"
	TargetKindByDate  TargetKind = "by_date"
	TargetKindCustom  TargetKind = "custom"
	TargetKindNoDate  TargetKind = "no_date"
)

// Target is a savings or spending goal attached to a category. The set of
// variants is closed.
type Target interface {
	Kind() TargetKind
	GoalAmount() money.Amount
	Validate() error
	target()
}

// MonthlyTarget refills Goal every calendar month.
type MonthlyTarget struct {
	Goal money.Amount
}

// WeeklyTarget refills Goal every week.
type WeeklyTarget struct {
	Goal money.Amount
}

// ByDateTarget reaches Goal by Date and does not recur.
type ByDateTarget struct {
	Goal money.Amount
	Date time.Time
}

// CustomTarget refills Goal on a custom cycle. Anchor is the date the cycle is
// counted from.
type CustomTarget struct {
	Goal     money.Amount
	Interval recurrence.Rule
	Anchor   time.Time
}

// NoDateTarget is a flat goal without timing.
type NoDateTarget struct {
	Goal money.Amount
}

func (MonthlyTarget) Kind() TargetKind { return TargetKindMonthly }
func (WeeklyTarget) Kind() TargetKind { return TargetKindWeekly }
func (ByDateTarget) Kind() TargetKind { return TargetKindByDate }
func (CustomTarget) Kind() TargetKind { return TargetKindCustom }
func (NoDateTarget) Kind() TargetKind { return TargetKindNoDate }

func (t MonthlyTarget) GoalAmount() money.Amount { return t.Goal }
func (t WeeklyTarget) GoalAmount() money.Amount { return t.Goal }
func (t ByDateTarget) GoalAmount() money.Amount { return t.Goal }
func (t CustomTarget) GoalAmount() money.Amount { return t.Goal }
func (t NoDateTarget) GoalAmount() money.Amount { return t.Goal }

func (t MonthlyTarget) Validate() error { return validateGoal(t.Goal) }
func (t WeeklyTarget) Validate() error { return validateGoal(t.Goal) }
func (t NoDateTarget) Validate() error { return validateGoal(t.Goal) }

func (t ByDateTarget) Validate() error {
	if err := validateGoal(t.Goal); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInterval, "target date is required")
	}
	return nil
}

func (t CustomTarget) Validate() error {
	if err := validateGoal(t.Goal); err != nil {
		return err
	}
	return ValidateTargetInterval(t.Interval)
}

func (MonthlyTarget) target() {}
func (WeeklyTarget) target() {}
func (ByDateTarget) target() {}
func (CustomTarget) target() {}
func (NoDateTarget) target() {}

func validateGoal(goal money.Amount) error {
	if goal.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "target amount must not be negative")
	}
	if !money.FitsScale(goal) {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "target amount has more than two decimal places")
	}
	return nil
}

// ValidateTargetInterval accepts the intervals a custom target may use:
// every n days, months or years, or a fixed day of the month.
func ValidateTargetInterval(rule recurrence.Rule) error {
	switch rule.(type) {
	case recurrence.EveryDays, recurrence.EveryMonths, recurrence.EveryYears, recurrence.MonthlyOnDay:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInterval, "unsupported target interval")
	}
	if err := rule.Validate(); err != nil {
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInterval, err.Error()), err)
	}
	return nil
}

// NewMonthlyTarget builds a monthly target.
func NewMonthlyTarget(goal money.Amount) (Target, error) {
	t := MonthlyTarget{Goal: goal}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWeeklyTarget builds a weekly target.
func NewWeeklyTarget(goal money.Amount) (Target, error) {
	t := WeeklyTarget{Goal: goal}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewByDateTarget builds a target that must be reached by date.
func NewByDateTarget(goal money.Amount, date time.Time) (Target, error) {
	t := ByDateTarget{Goal: goal, Date: date}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewCustomTarget builds a target refilled on interval, counted from anchor.
func NewCustomTarget(goal money.Amount, interval recurrence.Rule, anchor time.Time) (Target, error) {
	t := CustomTarget{Goal: goal, Interval: interval, Anchor: anchor}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewNoDateTarget builds a flat goal.
func NewNoDateTarget(goal money.Amount) (Target, error) {
	t := NoDateTarget{Goal: goal}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
