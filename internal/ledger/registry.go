package ledger

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"envelope/internal/repository"
)

// Registry keeps one Ledger per active budget scope and opens them lazily.
// Loads of different scopes run concurrently; concurrent first requests for
// the same scope share one load.
type Registry struct {
	repo repository.Repository
	opts Options

	mu      sync.RWMutex
	ledgers map[string]*Ledger
	loads   singleflight.Group
}

// NewRegistry creates a registry whose ledgers share repo and opts.
func NewRegistry(repo repository.Repository, opts Options) *Registry {
	return &Registry{
		repo:    repo,
		opts:    opts.withDefaults(),
		ledgers: make(map[string]*Ledger),
	}
}

// Get returns the ledger of scope, loading it on first use. A failed load is
// not cached.
func (r *Registry) Get(ctx context.Context, scope string) (*Ledger, error) {
	if l, ok := r.cached(scope); ok {
		return l, nil
	}

	v, err, _ := r.loads.Do(scope, func() (any, error) {
		if l, ok := r.cached(scope); ok {
			return l, nil
		}
		l, err := Open(ctx, scope, r.repo, r.opts)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.ledgers[scope]; ok {
			return existing, nil
		}
		r.ledgers[scope] = l
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ledger), nil
}

func (r *Registry) cached(scope string) (*Ledger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[scope]
	return l, ok
}
