// Package repository is the persistence boundary of the ledger.
//
// Every entity is stored as one aggregate per type, keyed by id and scoped by
// budget. Writes are expressed as a ChangeSet that an implementation applies
// all-or-nothing.
package repository

import (
	"context"

	apperrors "envelope/internal/errors"
	"envelope/internal/models"
)

// Repository loads and persists the entities of one budget scope.
type Repository interface {
	LoadAccounts(ctx context.Context, scope string) ([]models.Account, error)
	// LoadCategoryGroups returns groups ordered by position with their
	// categories nested, also ordered by position.
	LoadCategoryGroups(ctx context.Context, scope string) ([]models.CategoryGroup, error)
	LoadTransactions(ctx context.Context, scope string) ([]models.Transaction, error)
	LoadPlannedTransactions(ctx context.Context, scope string) ([]models.PlannedTransaction, error)
	Apply(ctx context.Context, scope string, changes *ChangeSet) error
	// PlannedScopes lists the scopes holding at least one active planned
	// transaction, ordered.
	PlannedScopes(ctx context.Context) ([]string, error)
}

// Op is the kind of a change.
type Op int

const (
	OpSave Op = iota
	OpDelete
)

// Change is a single save or delete. For saves Entity holds a copy of the
// entity value; for deletes it is nil.
type Change struct {
	Op     Op
	Kind   apperrors.EntityKind
	ID     string
	Entity any
}

// ChangeSet is an ordered batch of changes. Saving the same entity twice keeps
// only the latest value.
type ChangeSet struct {
	changes []Change
	index   map[changeKey]int
}

type changeKey struct {
	kind apperrors.EntityKind
	id   string
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{index: make(map[changeKey]int)}
}

// SaveAccount records an upsert of the account.
func (c *ChangeSet) SaveAccount(a models.Account) {
	c.put(Change{Op: OpSave, Kind: apperrors.EntityAccount, ID: a.ID, Entity: a})
}

// SaveCategoryGroup records an upsert of the group. Nested categories are not
// saved; use SaveCategory for each.
func (c *ChangeSet) SaveCategoryGroup(g models.CategoryGroup) {
	g.Categories = nil
	c.put(Change{Op: OpSave, Kind: apperrors.EntityCategoryGroup, ID: g.ID, Entity: g})
}

// SaveCategory records an upsert of the category.
func (c *ChangeSet) SaveCategory(cat models.Category) {
	c.put(Change{Op: OpSave, Kind: apperrors.EntityCategory, ID: cat.ID, Entity: cat})
}

// SaveTransaction records an insert of the transaction.
func (c *ChangeSet) SaveTransaction(tx models.Transaction) {
	c.put(Change{Op: OpSave, Kind: apperrors.EntityTransaction, ID: tx.ID, Entity: tx})
}

// SavePlanned records an upsert of the planned transaction.
func (c *ChangeSet) SavePlanned(p models.PlannedTransaction) {
	c.put(Change{Op: OpSave, Kind: apperrors.EntityPlannedTransaction, ID: p.ID, Entity: p})
}

// Delete records the removal of an entity.
func (c *ChangeSet) Delete(kind apperrors.EntityKind, id string) {
	c.put(Change{Op: OpDelete, Kind: kind, ID: id})
}

// Changes returns the changes in the order they were first recorded.
func (c *ChangeSet) Changes() []Change {
	out := make([]Change, len(c.changes))
	copy(out, c.changes)
	return out
}

// Len returns the number of distinct changes.
func (c *ChangeSet) Len() int {
	return len(c.changes)
}

func (c *ChangeSet) put(ch Change) {
	if c.index == nil {
		c.index = make(map[changeKey]int)
	}
	key := changeKey{kind: ch.Kind, id: ch.ID}
	if i, ok := c.index[key]; ok {
		c.changes[i] = ch
		return
	}
	c.index[key] = len(c.changes)
	c.changes = append(c.changes, ch)
}
