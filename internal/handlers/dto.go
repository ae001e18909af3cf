package handlers

import (
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

// RecurrenceRequest describes a planned transaction schedule. Every and Unit
// are read only for the custom kind.
type RecurrenceRequest struct {
	Kind  string `json:"kind" binding:"required,recurrence_kind" example:"monthly"`
	Every int    `json:"every,omitempty" example:"2"`
	Unit  string `json:"unit,omitempty" binding:"omitempty,period_unit" example:"week"`
}

// RecurrenceResponse renders a schedule.
type RecurrenceResponse struct {
	Kind        string `json:"kind"`
	Every       int    `json:"every,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description"`
}

func (r RecurrenceRequest) rule() (recurrence.Rule, error) {
	switch r.Kind {
	case "daily":
		return recurrence.Daily{}, nil
	case "weekly":
		return recurrence.Weekly{}, nil
	case "monthly":
		return recurrence.Monthly{}, nil
	case "custom":
		rule, err := recurrence.Custom(r.Every, recurrence.Unit(r.Unit))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInterval, err.Error()), err)
		}
		return rule, nil
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInterval, "unsupported recurrence kind")
}

func newRecurrenceResponse(rule recurrence.Rule) *RecurrenceResponse {
	if rule == nil {
		return nil
	}
	resp := &RecurrenceResponse{Description: rule.String()}
	switch r := rule.(type) {
	case recurrence.Daily:
		resp.Kind = "daily"
	case recurrence.Weekly:
		resp.Kind = "weekly"
	case recurrence.Monthly:
		resp.Kind = "monthly"
	case recurrence.EveryDays:
		resp.Kind, resp.Every, resp.Unit = "custom", r.N, string(recurrence.UnitDay)
	case recurrence.EveryWeeks:
		resp.Kind, resp.Every, resp.Unit = "custom", r.N, string(recurrence.UnitWeek)
	case recurrence.EveryMonths:
		resp.Kind, resp.Every, resp.Unit = "custom", r.N, string(recurrence.UnitMonth)
	case recurrence.EveryYears:
		resp.Kind, resp.Every, resp.Unit = "custom", r.N, string(recurrence.UnitYear)
	}
	return resp
}

// IntervalRequest is the cycle of a custom target.
type IntervalRequest struct {
	Kind  string `json:"kind" binding:"required,interval_kind" example:"months"`
	Count int    `json:"count,omitempty" example:"3"`
	Day   int    `json:"day,omitempty" example:"15"`
}

func (r IntervalRequest) rule() recurrence.Rule {
	switch r.Kind {
	case "days":
		return recurrence.EveryDays{N: r.Count}
	case "months":
		return recurrence.EveryMonths{N: r.Count}
	case "years":
		return recurrence.EveryYears{N: r.Count}
	case "monthly_on_day":
		return recurrence.MonthlyOnDay{Day: r.Day}
	}
	return nil
}

// TargetRequest sets a category target.
type TargetRequest struct {
	Kind     models.TargetKind `json:"kind" binding:"required,target_kind" example:"monthly"`
	Amount   money.Amount      `json:"amount" swaggertype:"string" example:"400.00"`
	Date     string            `json:"date,omitempty" example:"2025-12-31"`
	Interval *IntervalRequest  `json:"interval,omitempty"`
}

// TargetResponse renders a category target.
type TargetResponse struct {
	Kind     models.TargetKind `json:"kind"`
	Amount   money.Amount      `json:"amount" swaggertype:"string"`
	Date     *time.Time        `json:"date,omitempty"`
	Interval *IntervalResponse `json:"interval,omitempty"`
	Anchor   *time.Time        `json:"anchor,omitempty"`
}

// IntervalResponse renders a custom target's cycle.
type IntervalResponse struct {
	Kind        string `json:"kind"`
	Count       int    `json:"count,omitempty"`
	Day         int    `json:"day,omitempty"`
	Description string `json:"description"`
}

func (r TargetRequest) target(cal Calendar) (models.Target, error) {
	switch r.Kind {
	case models.TargetKindMonthly:
		return models.NewMonthlyTarget(r.Amount)
	case models.TargetKindWeekly:
		return models.NewWeeklyTarget(r.Amount)
	case models.TargetKindNoDate:
		return models.NewNoDateTarget(r.Amount)
	case models.TargetKindByDate:
		if r.Date == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInterval, "target date is required")
		}
		date, err := cal.parseDate("date", r.Date)
		if err != nil {
			return nil, err
		}
		return models.NewByDateTarget(r.Amount, date)
	case models.TargetKindCustom:
		if r.Interval == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInterval, "interval is required for a custom target")
		}
		return models.NewCustomTarget(r.Amount, r.Interval.rule(), time.Time{})
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported target kind")
}

func newTargetResponse(t models.Target) *TargetResponse {
	if t == nil {
		return nil
	}
	resp := &TargetResponse{Kind: t.Kind(), Amount: t.GoalAmount()}
	switch v := t.(type) {
	case models.ByDateTarget:
		date := v.Date
		resp.Date = &date
	case models.CustomTarget:
		anchor := v.Anchor
		resp.Anchor = &anchor
		resp.Interval = &IntervalResponse{Description: v.Interval.String()}
		switch r := v.Interval.(type) {
		case recurrence.EveryDays:
			resp.Interval.Kind, resp.Interval.Count = "days", r.N
		case recurrence.EveryMonths:
			resp.Interval.Kind, resp.Interval.Count = "months", r.N
		case recurrence.EveryYears:
			resp.Interval.Kind, resp.Interval.Count = "years", r.N
		case recurrence.MonthlyOnDay:
			resp.Interval.Kind, resp.Interval.Day = "monthly_on_day", r.Day
		}
	}
	return resp
}

// CategoryResponse is a category with its available balance and target.
type CategoryResponse struct {
	models.Category
	Available money.Amount    `json:"available" swaggertype:"string"`
	Target    *TargetResponse `json:"target,omitempty"`
}

func newCategoryResponse(c models.Category) CategoryResponse {
	return CategoryResponse{Category: c, Available: c.Available(), Target: newTargetResponse(c.Target)}
}

// CategoryGroupResponse is a group with its categories rendered.
type CategoryGroupResponse struct {
	models.CategoryGroup
	Categories []CategoryResponse `json:"categories"`
}

func newCategoryGroupResponse(g models.CategoryGroup) CategoryGroupResponse {
	cats := make([]CategoryResponse, 0, len(g.Categories))
	for _, c := range g.Categories {
		cats = append(cats, newCategoryResponse(c))
	}
	return CategoryGroupResponse{CategoryGroup: g, Categories: cats}
}

// PlannedResponse is a planned transaction with its schedule rendered.
type PlannedResponse struct {
	models.PlannedTransaction
	Recurrence *RecurrenceResponse `json:"recurrence"`
}

func newPlannedResponse(p models.PlannedTransaction) PlannedResponse {
	return PlannedResponse{PlannedTransaction: p, Recurrence: newRecurrenceResponse(p.Recurrence)}
}

func newPlannedResponses(items []models.PlannedTransaction) []PlannedResponse {
	out := make([]PlannedResponse, 0, len(items))
	for _, p := range items {
		out = append(out, newPlannedResponse(p))
	}
	return out
}
