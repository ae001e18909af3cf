// Package recurrence computes calendar occurrences for planned transactions and
// category targets.
//
// All arithmetic happens in an explicitly supplied location; nothing here reads
// the wall clock. Month-based steps clamp the day of month to the length of the
// destination month and the clamped day carries forward: Jan 31 steps to Feb 28
// and then to Mar 28.
package recurrence

import (
	"fmt"
	"time"
)

// Rule is a recurrence rule. The set of rules is closed; see the types below.
type Rule interface {
	// Validate reports whether the rule parameters are usable.
	Validate() error
	String() string
	step(after time.Time) time.Time
}

// Daily repeats every day.
type Daily struct{}

// Weekly repeats every seven days.
type Weekly struct{}

// Monthly repeats every calendar month.
type Monthly struct{}

// EveryDays repeats every N days.
type EveryDays struct{ N int }

// EveryWeeks repeats every N weeks.
type EveryWeeks struct{ N int }

// EveryMonths repeats every N calendar months.
type EveryMonths struct{ N int }

// EveryYears repeats every N years.
type EveryYears struct{ N int }

// MonthlyOnDay repeats on a fixed day of each month, clamped to short months.
type MonthlyOnDay struct{ Day int }

// ErrInvalidRule is returned by Validate for unusable parameters.
type ErrInvalidRule struct {
	Rule   string
	Reason string
}

func (e *ErrInvalidRule) Error() string {
	return fmt.Sprintf("invalid recurrence %s: %s", e.Rule, e.Reason)
}

func (Daily) Validate() error { return nil }
func (Weekly) Validate() error { return nil }
func (Monthly) Validate() error { return nil }

func (r EveryDays) Validate() error { return validateCount(r, r.N) }
func (r EveryWeeks) Validate() error { return validateCount(r, r.N) }
func (r EveryMonths) Validate() error { return validateCount(r, r.N) }
func (r EveryYears) Validate() error { return validateCount(r, r.N) }

func (r MonthlyOnDay) Validate() error {
	if r.Day < 1 || r.Day > 31 {
		return &ErrInvalidRule{Rule: r.String(), Reason: "day must be between 1 and 31"}
	}
	return nil
}

func validateCount(r Rule, n int) error {
	if n < 1 {
		return &ErrInvalidRule{Rule: r.String(), Reason: "interval must be at least 1"}
	}
	return nil
}

func (Daily) String() string { return "daily" }
func (Weekly) String() string { return "weekly" }
func (Monthly) String() string { return "monthly" }
func (r EveryDays) String() string { return fmt.Sprintf("every %d day(s)", r.N) }
func (r EveryWeeks) String() string { return fmt.Sprintf("every %d week(s)", r.N) }
func (r EveryMonths) String() string { return fmt.Sprintf("every %d month(s)", r.N) }
func (r EveryYears) String() string { return fmt.Sprintf("every %d year(s)", r.N) }
func (r MonthlyOnDay) String() string { return fmt.Sprintf("monthly on day %d", r.Day) }

func (Daily) step(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
func (Weekly) step(t time.Time) time.Time { return t.AddDate(0, 0, 7) }

func (Monthly) step(t time.Time) time.Time { return AddMonths(t, 1) }
func (r EveryDays) step(t time.Time) time.Time { return t.AddDate(0, 0, r.N) }
func (r EveryWeeks) step(t time.Time) time.Time { return t.AddDate(0, 0, 7*r.N) }
func (r EveryMonths) step(t time.Time) time.Time { return AddMonths(t, r.N) }
func (r EveryYears) step(t time.Time) time.Time { return AddMonths(t, 12*r.N) }

func (r MonthlyOnDay) step(t time.Time) time.Time {
	candidate := dayInMonth(t, t.Year(), t.Month(), r.Day)
	if candidate.After(t) {
		return candidate
	}
	next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return dayInMonth(t, next.Year(), next.Month(), r.Day)
}

// NextOccurrence returns the first occurrence of rule strictly after the given
// time, evaluated in loc. An invalid rule or a nil location yields after
// unchanged; use Stalled to detect that case.
func NextOccurrence(after time.Time, rule Rule, loc *time.Location) time.Time {
	if rule == nil || loc == nil {
		return after
	}
	if err := rule.Validate(); err != nil {
		return after
	}
	next := rule.step(after.In(loc))
	if !next.After(after) {
		return after
	}
	return next
}

// Stalled reports whether a computed next occurrence failed to advance.
func Stalled(after, next time.Time) bool {
	return !next.After(after)
}

// OccurrencesBetween lists occurrences after start up to and including end.
// The walk stops at limit entries or when the schedule stalls.
func OccurrencesBetween(start, end time.Time, rule Rule, loc *time.Location, limit int) []time.Time {
	var out []time.Time
	cur := start
	for len(out) < limit {
		next := NextOccurrence(cur, rule, loc)
		if Stalled(cur, next) || next.After(end) {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}

// AddMonths adds n calendar months, clamping the day to the last day of the
// destination month. Clock time and location are preserved.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	return dayInMonth(t, first.Year(), first.Month(), t.Day())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// EndOfMonth returns the last day of t's month at t's clock time.
func EndOfMonth(t time.Time) time.Time {
	return dayInMonth(t, t.Year(), t.Month(), 31)
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns midnight of the first day of t's week, where weeks begin
// on weekStart.
func StartOfWeek(t time.Time, weekStart time.Weekday, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// dayInMonth builds a date in year/month on day (clamped), keeping ref's clock.
func dayInMonth(ref time.Time, year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month, ref.Location()); day > last {
		day = last
	}
	return time.Date(year, month, day, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

// Unit is the period unit of a custom recurrence.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// Custom builds the rule repeating every n units.
func Custom(n int, unit Unit) (Rule, error) {
	var r Rule
	switch unit {
	case UnitDay:
		r = EveryDays{N: n}
	case UnitWeek:
		r = EveryWeeks{N: n}
	case UnitMonth:
		r = EveryMonths{N: n}
	case UnitYear:
		r = EveryYears{N: n}
	default:
		return nil, &ErrInvalidRule{Rule: string(unit), Reason: "unknown period unit"}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
