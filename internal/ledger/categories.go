package ledger

import (
	"context"
	"sort"
	"time"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
	"envelope/internal/money"
	"envelope/internal/recurrence"
)

// CreateCategoryGroup appends a group to the budget. At most one group may be
// the income group.
func (l *Ledger) CreateCategoryGroup(ctx context.Context, g models.CategoryGroup) (models.CategoryGroup, error) {
	if err := g.Validate(); err != nil {
		return models.CategoryGroup{}, err
	}
	g.ID = ""
	g.Categories = nil

	err := l.mutate(ctx, "create_category_group", func(m *mutation) error {
		if g.IsIncome {
			for _, existing := range l.groups {
				if existing.IsIncome {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "budget already has an income group")
				}
			}
		}

		g.EnsureID(m.now)
		g.Position = len(l.groupOrder)
		track(m, apperrors.EntityCategoryGroup, l.groups, g.ID)
		stored := g
		l.groups[g.ID] = &stored

		prevOrder := l.groupOrder
		l.groupOrder = append(append([]string(nil), prevOrder...), g.ID)
		m.onUndo(func() { l.groupOrder = prevOrder })
		return nil
	})
	if err != nil {
		return models.CategoryGroup{}, err
	}
	return g, nil
}

// CreateCategory appends an empty envelope to a group.
func (l *Ledger) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if err := c.Validate(); err != nil {
		return models.Category{}, err
	}
	c.ID = ""
	c.Allocated = money.Zero
	c.Spent = money.Zero

	err := l.mutate(ctx, "create_category", func(m *mutation) error {
		if _, ok := l.groups[c.GroupID]; !ok {
			return apperrors.NotFound(apperrors.EntityCategoryGroup, c.GroupID)
		}
		position := 0
		for _, existing := range l.categories {
			if existing.GroupID == c.GroupID && existing.Position >= position {
				position = existing.Position + 1
			}
		}

		c.EnsureID(m.now)
		c.Position = position
		c.Target = anchorTarget(c.Target, m.now, l.opts)
		track(m, apperrors.EntityCategory, l.categories, c.ID)
		stored := c
		l.categories[c.ID] = &stored
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// Allocate assigns money to a category envelope. Allocating more than is
// available to budget is allowed and logged.
func (l *Ledger) Allocate(ctx context.Context, categoryID string, amount money.Amount) (models.Category, error) {
	if !money.IsValidMagnitude(amount) {
		return models.Category{}, apperrors.WithMessage(apperrors.ErrInvalidAmount, "allocation must be greater than zero with at most two decimal places")
	}

	var out models.Category
	var remaining money.Amount
	err := l.mutate(ctx, "allocate", func(m *mutation) error {
		c, err := l.category(categoryID)
		if err != nil {
			return err
		}
		c = m.editCategory(c)
		c.Allocated = c.Allocated.Add(amount)
		out = *c
		remaining = l.availableToBudget()
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}

	if remaining.IsNegative() {
		l.log.Warnw("Allocation exceeds funds available to budget",
			"scope", l.scope,
			"category_id", categoryID,
			"amount", amount.String(),
			"available_to_budget", remaining.String(),
		)
	}
	return out, nil
}

// SetTarget replaces the category's target. A custom target without an anchor
// is anchored to the current day.
func (l *Ledger) SetTarget(ctx context.Context, categoryID string, target models.Target) (models.Category, error) {
	if target == nil {
		return models.Category{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "target is required")
	}
	if err := target.Validate(); err != nil {
		return models.Category{}, err
	}

	var out models.Category
	err := l.mutate(ctx, "set_target", func(m *mutation) error {
		c, err := l.category(categoryID)
		if err != nil {
			return err
		}
		m.editCategory(c).Target = anchorTarget(target, m.now, l.opts)
		out = *c
		return nil
	})
	return out, err
}

// ClearTarget removes the category's target.
func (l *Ledger) ClearTarget(ctx context.Context, categoryID string) (models.Category, error) {
	var out models.Category
	err := l.mutate(ctx, "clear_target", func(m *mutation) error {
		c, err := l.category(categoryID)
		if err != nil {
			return err
		}
		m.editCategory(c).Target = nil
		out = *c
		return nil
	})
	return out, err
}

func anchorTarget(t models.Target, now time.Time, opts Options) models.Target {
	if custom, ok := t.(models.CustomTarget); ok && custom.Anchor.IsZero() {
		custom.Anchor = recurrence.StartOfDay(now, opts.Location)
		return custom
	}
	return t
}

// CategoryGroups returns the groups in order with their categories nested.
func (l *Ledger) CategoryGroups() []models.CategoryGroup {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byGroup := make(map[string][]models.Category, len(l.groups))
	for _, c := range l.categories {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], *c)
	}

	out := make([]models.CategoryGroup, 0, len(l.groupOrder))
	for _, id := range l.groupOrder {
		g, ok := l.groups[id]
		if !ok {
			continue
		}
		snapshot := *g
		cats := byGroup[id]
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].Position != cats[j].Position {
				return cats[i].Position < cats[j].Position
			}
			return cats[i].ID < cats[j].ID
		})
		snapshot.Categories = cats
		out = append(out, snapshot)
	}
	return out
}

// Category returns a snapshot of one category.
func (l *Ledger) Category(categoryID string) (models.Category, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, err := l.category(categoryID)
	if err != nil {
		return models.Category{}, err
	}
	return *c, nil
}

// CategoryAvailable returns allocated minus spent for the category.
func (l *Ledger) CategoryAvailable(categoryID string) (money.Amount, error) {
	c, err := l.Category(categoryID)
	if err != nil {
		return money.Zero, err
	}
	return c.Available(), nil
}

// AvailableToBudget is the total of all account balances minus everything
// allocated across categories.
func (l *Ledger) AvailableToBudget() money.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.availableToBudget()
}

// TotalUnallocated is the total of all account balances minus the money still
// sitting in envelopes (allocated but unspent).
func (l *Ledger) TotalUnallocated() money.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := l.totalBalance()
	for _, c := range l.categories {
		total = total.Sub(c.Available())
	}
	return total
}

// TotalBalance sums the balances of all accounts.
func (l *Ledger) TotalBalance() money.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalBalance()
}

func (l *Ledger) totalBalance() money.Amount {
	total := money.Zero
	for _, a := range l.accounts {
		total = total.Add(a.Balance)
	}
	return total
}

func (l *Ledger) availableToBudget() money.Amount {
	total := l.totalBalance()
	for _, c := range l.categories {
		total = total.Sub(c.Allocated)
	}
	return total
}
