package models

import (
	"strings"

	apperrors "envelope/internal/errors"
	"envelope/internal/money"
)

// CategoryGroup is an ordered set of categories. Exactly one group per budget
// may be the income group; its categories never accumulate Spent.
type CategoryGroup struct {
	Base
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji,omitempty"`
	IsIncome   bool       `json:"is_income"`
	Position   int        `json:"position"`
	Categories []Category `json:"categories"`
}

// Category is a spending envelope.
type Category struct {
	Base
	GroupID   string       `json:"group_id"`
	Name      string       `json:"name"`
	Emoji     string       `json:"emoji,omitempty"`
	Position  int          `json:"position"`
	Allocated money.Amount `json:"allocated"`
	Spent     money.Amount `json:"spent"`
	Target    Target       `json:"-"`
}

// Available is the unspent portion of the envelope.
func (c *Category) Available() money.Amount {
	return c.Allocated.Sub(c.Spent)
}

// Validate checks the category's descriptive fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if c.Target != nil {
		return c.Target.Validate()
	}
	return nil
}

// Validate checks the group's descriptive fields.
func (g *CategoryGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category group name is required")
	}
	return nil
}
