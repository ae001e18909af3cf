// Package ledger owns the in-memory state of one budget and is the only place
// that mutates accounts and categories.
//
// Mutations are serialized per ledger, applied to memory first and then
// committed to the repository as one change set. A failed commit replays the
// undo journal, so readers never observe state the store rejected for longer
// than the commit takes.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "envelope/internal/errors"
	"envelope/internal/logger"
	"envelope/internal/models"
	"envelope/internal/repository"
)

// Options configures calendar handling and collaborators of a Ledger.
type Options struct {
	// Location is used for all calendar arithmetic. Defaults to UTC.
	Location *time.Location
	// WeekStart is the first day of a budgeting week.
	WeekStart time.Weekday
	// Clock stamps created and updated times. Defaults to time.Now.
	Clock  func() time.Time
	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = logger.Named("ledger")
	}
	return o
}

// Ledger holds the state of a single budget scope.
type Ledger struct {
	scope string
	repo  repository.Repository
	opts  Options
	log   *zap.SugaredLogger

	// writeMu serializes mutations; mu guards the maps below.
	writeMu sync.Mutex
	mu      sync.RWMutex

	accounts     map[string]*models.Account
	groups       map[string]*models.CategoryGroup
	groupOrder   []string
	categories   map[string]*models.Category
	transactions map[string]*models.Transaction
	planned      map[string]*models.PlannedTransaction
	applied      map[models.OccurrenceKey]string
}

// Open loads every entity of scope from repo and builds its ledger.
func Open(ctx context.Context, scope string, repo repository.Repository, opts Options) (*Ledger, error) {
	opts = opts.withDefaults()

	var (
		accounts     []models.Account
		groups       []models.CategoryGroup
		transactions []models.Transaction
		planned      []models.PlannedTransaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = repo.LoadAccounts(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		groups, err = repo.LoadCategoryGroups(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		transactions, err = repo.LoadTransactions(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		planned, err = repo.LoadPlannedTransactions(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.PersistenceFailure(fmt.Errorf("load budget %s: %w", scope, err))
	}

	l := &Ledger{
		scope:        scope,
		repo:         repo,
		opts:         opts,
		log:          opts.Logger,
		accounts:     make(map[string]*models.Account, len(accounts)),
		groups:       make(map[string]*models.CategoryGroup, len(groups)),
		categories:   make(map[string]*models.Category),
		transactions: make(map[string]*models.Transaction, len(transactions)),
		planned:      make(map[string]*models.PlannedTransaction, len(planned)),
		applied:      make(map[models.OccurrenceKey]string),
	}

	for i := range accounts {
		a := accounts[i]
		l.accounts[a.ID] = &a
	}
	for i := range groups {
		grp := groups[i]
		for j := range grp.Categories {
			c := grp.Categories[j]
			l.categories[c.ID] = &c
		}
		grp.Categories = nil
		l.groups[grp.ID] = &grp
		l.groupOrder = append(l.groupOrder, grp.ID)
	}
	for i := range transactions {
		tx := transactions[i]
		l.transactions[tx.ID] = &tx
		if key, ok := occurrenceKey(&tx); ok {
			l.applied[key] = tx.ID
		}
	}
	for i := range planned {
		p := planned[i]
		l.planned[p.ID] = &p
	}

	l.log.Infow("Opened budget ledger",
		"scope", scope,
		"accounts", len(l.accounts),
		"categories", len(l.categories),
		"transactions", len(l.transactions),
		"planned", len(l.planned),
	)
	return l, nil
}

// Scope returns the budget scope id.
func (l *Ledger) Scope() string { return l.scope }

// Location returns the calendar location of the ledger.
func (l *Ledger) Location() *time.Location { return l.opts.Location }

func occurrenceKey(tx *models.Transaction) (models.OccurrenceKey, bool) {
	if tx.PlannedID == nil || tx.Occurrence == nil {
		return models.OccurrenceKey{}, false
	}
	return models.OccurrenceKey{PlannedID: *tx.PlannedID, Due: tx.Occurrence.UTC()}, true
}

// mutate runs fn under the write lock and commits the resulting change set.
// Any error from fn or from the repository leaves the state as it was.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(m *mutation) error) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m := newMutation(l)
	l.mu.Lock()
	if err := fn(m); err != nil {
		m.rollback()
		l.mu.Unlock()
		return err
	}
	changes := m.changeSet()
	l.mu.Unlock()

	if err := l.repo.Apply(ctx, l.scope, changes); err != nil {
		l.mu.Lock()
		m.rollback()
		l.mu.Unlock()
		l.log.Errorw("Rolled back ledger mutation",
			"scope", l.scope,
			"operation", op,
			"changes", changes.Len(),
			"error", err,
		)
		return apperrors.PersistenceFailure(err)
	}
	return nil
}

type entityRef struct {
	kind apperrors.EntityKind
	id   string
}

// mutation is the undo journal of one in-flight change.
type mutation struct {
	l    *Ledger
	now  time.Time
	refs []entityRef
	seen map[entityRef]bool
	undo []func()
}

func newMutation(l *Ledger) *mutation {
	return &mutation{l: l, now: l.opts.Clock(), seen: make(map[entityRef]bool)}
}

// track records the pre-mutation value of an entity the first time it is
// touched. Call it before changing, inserting or deleting the entity.
func track[T any](m *mutation, kind apperrors.EntityKind, state map[string]*T, id string) {
	ref := entityRef{kind: kind, id: id}
	if m.seen[ref] {
		return
	}
	m.seen[ref] = true
	m.refs = append(m.refs, ref)

	if prev, ok := state[id]; ok {
		saved := *prev
		m.undo = append(m.undo, func() {
			*prev = saved
			state[id] = prev
		})
		return
	}
	m.undo = append(m.undo, func() { delete(state, id) })
}

func (m *mutation) onUndo(fn func()) {
	m.undo = append(m.undo, fn)
}

func (m *mutation) rollback() {
	for i := len(m.undo) - 1; i >= 0; i-- {
		m.undo[i]()
	}
	m.undo = nil
}

// changeSet saves every tracked entity that still exists and deletes the rest.
func (m *mutation) changeSet() *repository.ChangeSet {
	l := m.l
	cs := repository.NewChangeSet()
	for _, ref := range m.refs {
		switch ref.kind {
		case apperrors.EntityAccount:
			if a, ok := l.accounts[ref.id]; ok {
				cs.SaveAccount(*a)
				continue
			}
		case apperrors.EntityCategoryGroup:
			if g, ok := l.groups[ref.id]; ok {
				cs.SaveCategoryGroup(*g)
				continue
			}
		case apperrors.EntityCategory:
			if c, ok := l.categories[ref.id]; ok {
				cs.SaveCategory(*c)
				continue
			}
		case apperrors.EntityTransaction:
			if tx, ok := l.transactions[ref.id]; ok {
				cs.SaveTransaction(*tx)
				continue
			}
		case apperrors.EntityPlannedTransaction:
			if p, ok := l.planned[ref.id]; ok {
				cs.SavePlanned(*p)
				continue
			}
		}
		cs.Delete(ref.kind, ref.id)
	}
	return cs
}

func (m *mutation) editAccount(a *models.Account) *models.Account {
	track(m, apperrors.EntityAccount, m.l.accounts, a.ID)
	a.Touch(m.now)
	return a
}

func (m *mutation) editCategory(c *models.Category) *models.Category {
	track(m, apperrors.EntityCategory, m.l.categories, c.ID)
	c.Touch(m.now)
	return c
}

func (m *mutation) editPlanned(p *models.PlannedTransaction) *models.PlannedTransaction {
	track(m, apperrors.EntityPlannedTransaction, m.l.planned, p.ID)
	p.Touch(m.now)
	return p
}

// lookups; callers hold l.mu.

func (l *Ledger) account(id string) (*models.Account, error) {
	a, ok := l.accounts[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityAccount, id)
	}
	return a, nil
}

func (l *Ledger) writableAccount(id string) (*models.Account, error) {
	a, err := l.account(id)
	if err != nil {
		return nil, err
	}
	if a.Archived {
		return nil, apperrors.WithMessage(apperrors.ErrAccountArchived, fmt.Sprintf("account %s is archived", a.Name))
	}
	return a, nil
}

func (l *Ledger) category(id string) (*models.Category, error) {
	c, ok := l.categories[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityCategory, id)
	}
	return c, nil
}

func (l *Ledger) plannedByID(id string) (*models.PlannedTransaction, error) {
	p, ok := l.planned[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityPlannedTransaction, id)
	}
	return p, nil
}

// sortTransactions orders by date, then creation order.
func sortTransactions(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
