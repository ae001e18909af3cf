package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
)

// MemoryRepository keeps entities in process memory. It backs tests and the
// memory database driver.
type MemoryRepository struct {
	mu      sync.RWMutex
	scopes  map[string]*memoryScope
	failErr error
	applied int
}

type memoryScope struct {
	accounts     map[string]models.Account
	groups       map[string]models.CategoryGroup
	categories   map[string]models.Category
	transactions map[string]models.Transaction
	planned      map[string]models.PlannedTransaction
}

func newMemoryScope() *memoryScope {
	return &memoryScope{
		accounts:     make(map[string]models.Account),
		groups:       make(map[string]models.CategoryGroup),
		categories:   make(map[string]models.Category),
		transactions: make(map[string]models.Transaction),
		planned:      make(map[string]models.PlannedTransaction),
	}
}

func (s *memoryScope) clone() *memoryScope {
	c := newMemoryScope()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.planned {
		c.planned[k] = v
	}
	return c
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{scopes: make(map[string]*memoryScope)}
}

// FailApply makes every following Apply return err without writing. Pass nil
// to restore normal behavior.
func (r *MemoryRepository) FailApply(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

// AppliedCount returns the number of successful Apply calls.
func (r *MemoryRepository) AppliedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied
}

func (r *MemoryRepository) PlannedScopes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, s := range r.scopes {
		for _, p := range s.planned {
			if p.IsActive {
				out = append(out, id)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) scope(scope string) *memoryScope {
	s, ok := r.scopes[scope]
	if !ok {
		return newMemoryScope()
	}
	return s
}

func (r *MemoryRepository) LoadAccounts(ctx context.Context, scope string) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.scope(scope)
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) LoadCategoryGroups(ctx context.Context, scope string) ([]models.CategoryGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.scope(scope)
	byGroup := make(map[string][]models.Category)
	for _, c := range s.categories {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], c)
	}

	out := make([]models.CategoryGroup, 0, len(s.groups))
	for _, g := range s.groups {
		cats := byGroup[g.ID]
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].Position != cats[j].Position {
				return cats[i].Position < cats[j].Position
			}
			return cats[i].ID < cats[j].ID
		})
		g.Categories = cats
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) LoadTransactions(ctx context.Context, scope string) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.scope(scope)
	out := make([]models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) LoadPlannedTransactions(ctx context.Context, scope string) ([]models.PlannedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.scope(scope)
	out := make([]models.PlannedTransaction, 0, len(s.planned))
	for _, p := range s.planned {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Apply writes the changes to a copy of the scope and swaps it in only when
// every change succeeded.
func (r *MemoryRepository) Apply(ctx context.Context, scope string, changes *ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}
	if changes == nil || changes.Len() == 0 {
		return nil
	}

	next := r.scope(scope).clone()
	for _, ch := range changes.Changes() {
		if err := next.apply(ch); err != nil {
			return fmt.Errorf("%s %s: %w", ch.Kind, ch.ID, err)
		}
	}
	r.scopes[scope] = next
	r.applied++
	return nil
}

func (s *memoryScope) apply(ch Change) error {
	if ch.Op == OpDelete {
		switch ch.Kind {
		case apperrors.EntityAccount:
			delete(s.accounts, ch.ID)
		case apperrors.EntityCategoryGroup:
			delete(s.groups, ch.ID)
		case apperrors.EntityCategory:
			delete(s.categories, ch.ID)
		case apperrors.EntityTransaction:
			delete(s.transactions, ch.ID)
		case apperrors.EntityPlannedTransaction:
			delete(s.planned, ch.ID)
		default:
			return fmt.Errorf("unsupported entity kind %q", ch.Kind)
		}
		return nil
	}

	switch e := ch.Entity.(type) {
	case models.Account:
		s.accounts[e.ID] = e
	case models.CategoryGroup:
		s.groups[e.ID] = e
	case models.Category:
		s.categories[e.ID] = e
	case models.Transaction:
		for _, existing := range s.transactions {
			if sameOccurrence(existing, e) {
				return fmt.Errorf("occurrence of planned transaction %s already recorded", *e.PlannedID)
			}
		}
		s.transactions[e.ID] = e
	case models.PlannedTransaction:
		s.planned[e.ID] = e
	default:
		return fmt.Errorf("unsupported entity %T", ch.Entity)
	}
	return nil
}

// sameOccurrence mirrors the unique (planned_id, occurrence) index of the SQL
// schema.
func sameOccurrence(a, b models.Transaction) bool {
	if a.ID == b.ID || a.PlannedID == nil || b.PlannedID == nil || a.Occurrence == nil || b.Occurrence == nil {
		return false
	}
	return *a.PlannedID == *b.PlannedID && a.Occurrence.Equal(*b.Occurrence)
}
