// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"envelope/internal/models"
	"envelope/internal/recurrence"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("account_category", validateAccountCategory)
	_ = v.RegisterValidation("planned_type", validatePlannedType)
	_ = v.RegisterValidation("target_kind", validateTargetKind)
	_ = v.RegisterValidation("recurrence_kind", validateRecurrenceKind)
	_ = v.RegisterValidation("period_unit", validatePeriodUnit)
	_ = v.RegisterValidation("interval_kind", validateIntervalKind)
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeCash, models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCreditCard:
		return true
	}
	return false
}

func validateAccountCategory(fl validator.FieldLevel) bool {
	switch models.AccountCategory(fl.Field().String()) {
	case models.AccountCategoryPersonal, models.AccountCategoryBusiness, models.AccountCategoryInvestment, models.AccountCategoryShared:
		return true
	}
	return false
}

func validatePlannedType(fl validator.FieldLevel) bool {
	switch models.PlannedType(fl.Field().String()) {
	case models.PlannedTypeAutomatic, models.PlannedTypeManual:
		return true
	}
	return false
}

func validateTargetKind(fl validator.FieldLevel) bool {
	switch models.TargetKind(fl.Field().String()) {
	case models.TargetKindMonthly, models.TargetKindWeekly, models.TargetKindByDate, models.TargetKindCustom, models.TargetKindNoDate:
		return true
	}
	return false
}

// recurrence_kind covers planned transaction schedules.
func validateRecurrenceKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "daily", "weekly", "monthly", "custom":
		return true
	}
	return false
}

func validatePeriodUnit(fl validator.FieldLevel) bool {
	switch recurrence.Unit(fl.Field().String()) {
	case recurrence.UnitDay, recurrence.UnitWeek, recurrence.UnitMonth, recurrence.UnitYear:
		return true
	}
	return false
}

// interval_kind covers custom target intervals.
func validateIntervalKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "days", "months", "years", "monthly_on_day":
		return true
	}
	return false
}
