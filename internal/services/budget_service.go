package services

import (
	"context"

	"envelope/internal/ledger"
	"envelope/internal/money"
)

// CategorySummary is one envelope in a budget summary.
type CategorySummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Emoji     string       `json:"emoji,omitempty"`
	Allocated money.Amount `json:"allocated"`
	Spent     money.Amount `json:"spent"`
	Available money.Amount `json:"available"`
	HasTarget bool         `json:"has_target"`
}

// GroupSummary totals the envelopes of one category group.
type GroupSummary struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	IsIncome   bool              `json:"is_income"`
	Allocated  money.Amount      `json:"allocated"`
	Spent      money.Amount      `json:"spent"`
	Available  money.Amount      `json:"available"`
	Categories []CategorySummary `json:"categories"`
}

// BudgetSummary is the budget-wide view: account totals and envelopes.
type BudgetSummary struct {
	TotalBalance      money.Amount   `json:"total_balance"`
	AvailableToBudget money.Amount   `json:"available_to_budget"`
	TotalUnallocated  money.Amount   `json:"total_unallocated"`
	TotalAllocated    money.Amount   `json:"total_allocated"`
	TotalSpent        money.Amount   `json:"total_spent"`
	Groups            []GroupSummary `json:"groups"`
}

// budgetService computes budget-wide summaries.
type budgetService struct {
	ledgers *ledger.Registry
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(ledgers *ledger.Registry) BudgetServicer {
	return &budgetService{ledgers: ledgers}
}

// GetSummary reports balances, money left to assign and per-envelope totals.
func (s *budgetService) GetSummary(ctx context.Context, scope string) (*BudgetSummary, error) {
	l, err := s.ledgers.Get(ctx, scope)
	if err != nil {
		return nil, err
	}

	summary := &BudgetSummary{
		TotalBalance:      l.TotalBalance(),
		AvailableToBudget: l.AvailableToBudget(),
		TotalUnallocated:  l.TotalUnallocated(),
		TotalAllocated:    money.Zero,
		TotalSpent:        money.Zero,
		Groups:            []GroupSummary{},
	}
	for _, g := range l.CategoryGroups() {
		group := GroupSummary{
			ID:         g.ID,
			Name:       g.Name,
			IsIncome:   g.IsIncome,
			Allocated:  money.Zero,
			Spent:      money.Zero,
			Available:  money.Zero,
			Categories: make([]CategorySummary, 0, len(g.Categories)),
		}
		for _, c := range g.Categories {
			group.Categories = append(group.Categories, CategorySummary{
				ID:        c.ID,
				Name:      c.Name,
				Emoji:     c.Emoji,
				Allocated: c.Allocated,
				Spent:     c.Spent,
				Available: c.Available(),
				HasTarget: c.Target != nil,
			})
			group.Allocated = group.Allocated.Add(c.Allocated)
			group.Spent = group.Spent.Add(c.Spent)
			group.Available = group.Available.Add(c.Available())
		}
		summary.TotalAllocated = summary.TotalAllocated.Add(group.Allocated)
		summary.TotalSpent = summary.TotalSpent.Add(group.Spent)
		summary.Groups = append(summary.Groups, group)
	}
	return summary, nil
}
