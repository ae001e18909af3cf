package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"envelope/internal/models"
	"envelope/internal/recurrence"
)

// Rule kinds as stored in the recurrence and target interval columns.
const (
	ruleDaily        = "daily"
	ruleWeekly       = "weekly"
	ruleMonthly      = "monthly"
	ruleEveryDays    = "every_days"
	ruleEveryWeeks   = "every_weeks"
	ruleEveryMonths  = "every_months"
	ruleEveryYears   = "every_years"
	ruleMonthlyOnDay = "monthly_on_day"
)

func encodeRule(rule recurrence.Rule) (string, int, error) {
	switch r := rule.(type) {
	case recurrence.Daily:
		return ruleDaily, 1, nil
	case recurrence.Weekly:
		return ruleWeekly, 1, nil
	case recurrence.Monthly:
		return ruleMonthly, 1, nil
	case recurrence.EveryDays:
		return ruleEveryDays, r.N, nil
	case recurrence.EveryWeeks:
		return ruleEveryWeeks, r.N, nil
	case recurrence.EveryMonths:
		return ruleEveryMonths, r.N, nil
	case recurrence.EveryYears:
		return ruleEveryYears, r.N, nil
	case recurrence.MonthlyOnDay:
		return ruleMonthlyOnDay, r.Day, nil
	default:
		return "", 0, fmt.Errorf("unsupported recurrence rule %T", rule)
	}
}

func decodeRule(kind string, n int) (recurrence.Rule, error) {
	switch kind {
	case ruleDaily:
		return recurrence.Daily{}, nil
	case ruleWeekly:
		return recurrence.Weekly{}, nil
	case ruleMonthly:
		return recurrence.Monthly{}, nil
	case ruleEveryDays:
		return recurrence.EveryDays{N: n}, nil
	case ruleEveryWeeks:
		return recurrence.EveryWeeks{N: n}, nil
	case ruleEveryMonths:
		return recurrence.EveryMonths{N: n}, nil
	case ruleEveryYears:
		return recurrence.EveryYears{N: n}, nil
	case ruleMonthlyOnDay:
		return recurrence.MonthlyOnDay{Day: n}, nil
	default:
		return nil, fmt.Errorf("unknown recurrence kind %q", kind)
	}
}

// targetColumns is the flattened form of a models.Target.
type targetColumns struct {
	Kind          *string
	Goal          decimal.NullDecimal
	Date          *time.Time
	IntervalKind  *string
	IntervalCount *int
	Anchor        *time.Time
}

func encodeTarget(t models.Target) (targetColumns, error) {
	var cols targetColumns
	if t == nil {
		return cols, nil
	}
	kind := string(t.Kind())
	cols.Kind = &kind
	cols.Goal = decimal.NewNullDecimal(t.GoalAmount())

	switch v := t.(type) {
	case models.ByDateTarget:
		d := v.Date
		cols.Date = &d
	case models.CustomTarget:
		ik, n, err := encodeRule(v.Interval)
		if err != nil {
			return cols, err
		}
		anchor := v.Anchor
		cols.IntervalKind = &ik
		cols.IntervalCount = &n
		cols.Anchor = &anchor
	}
	return cols, nil
}

func decodeTarget(cols targetColumns) (models.Target, error) {
	if cols.Kind == nil {
		return nil, nil
	}
	goal := cols.Goal.Decimal

	switch models.TargetKind(*cols.Kind) {
	case models.TargetKindMonthly:
		return models.MonthlyTarget{Goal: goal}, nil
	case models.TargetKindWeekly:
		return models.WeeklyTarget{Goal: goal}, nil
	case models.TargetKindNoDate:
		return models.NoDateTarget{Goal: goal}, nil
	case models.TargetKindByDate:
		if cols.Date == nil {
			return nil, fmt.Errorf("by_date target without date")
		}
		return models.ByDateTarget{Goal: goal, Date: *cols.Date}, nil
	case models.TargetKindCustom:
		if cols.IntervalKind == nil || cols.IntervalCount == nil {
			return nil, fmt.Errorf("custom target without interval")
		}
		rule, err := decodeRule(*cols.IntervalKind, *cols.IntervalCount)
		if err != nil {
			return nil, err
		}
		t := models.CustomTarget{Goal: goal, Interval: rule}
		if cols.Anchor != nil {
			t.Anchor = *cols.Anchor
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", *cols.Kind)
	}
}
