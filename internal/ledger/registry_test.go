package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"envelope/internal/models"
	"envelope/internal/repository"
	"envelope/internal/testutil"
)

// gatedRepository holds account loads of one scope until release is closed.
type gatedRepository struct {
	*repository.MemoryRepository
	gated   string
	entered chan struct{}
	release chan struct{}
	loads   atomic.Int32
}

func newGatedRepository(gated string) *gatedRepository {
	return &gatedRepository{
		MemoryRepository: repository.NewMemoryRepository(),
		gated:            gated,
		entered:          make(chan struct{}, 4),
		release:          make(chan struct{}),
	}
}

func (g *gatedRepository) LoadAccounts(ctx context.Context, scope string) ([]models.Account, error) {
	if scope == g.gated {
		g.loads.Add(1)
		g.entered <- struct{}{}
		<-g.release
	}
	return g.MemoryRepository.LoadAccounts(ctx, scope)
}

func TestRegistry(t *testing.T) {
	t.Run("one_ledger_per_scope", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		scopeA, scopeB := testutil.NewScope(), testutil.NewScope()
		testutil.SeedAccount(t, repo, scopeA, "A", "10")
		testutil.SeedAccount(t, repo, scopeB, "B", "20")

		r := NewRegistry(repo, testOptions())

		a1, err := r.Get(ctx, scopeA)
		testutil.AssertNoError(t, err)
		a2, err := r.Get(ctx, scopeA)
		testutil.AssertNoError(t, err)
		if a1 != a2 {
			t.Error("expected the same ledger instance for a scope")
		}

		b, err := r.Get(ctx, scopeB)
		testutil.AssertNoError(t, err)
		testutil.AssertAmount(t, b.TotalBalance(), "20")
		testutil.AssertAmount(t, a1.TotalBalance(), "10")
	})

	t.Run("failed_load_is_retried", func(t *testing.T) {
		repo := repository.NewMemoryRepository()
		scope := testutil.NewScope()
		testutil.SeedAccount(t, repo, scope, "A", "10")
		r := NewRegistry(repo, testOptions())

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Get(cancelled, scope)
		testutil.AssertAppError(t, err, "PERSISTENCE_FAILURE")

		l, err := r.Get(ctx, scope)
		testutil.AssertNoError(t, err)
		testutil.AssertAmount(t, l.TotalBalance(), "10")
	})

	t.Run("slow_scope_does_not_block_others", func(t *testing.T) {
		slow, fast := testutil.NewScope(), testutil.NewScope()
		repo := newGatedRepository(slow)
		testutil.SeedAccount(t, repo, fast, "Fast", "5")
		r := NewRegistry(repo, testOptions())

		slowDone := make(chan error, 1)
		go func() {
			_, err := r.Get(ctx, slow)
			slowDone <- err
		}()
		<-repo.entered

		fastDone := make(chan error, 1)
		go func() {
			_, err := r.Get(ctx, fast)
			fastDone <- err
		}()
		select {
		case err := <-fastDone:
			testutil.AssertNoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("loading one scope blocked another")
		}

		close(repo.release)
		testutil.AssertNoError(t, <-slowDone)
	})

	t.Run("concurrent_first_use_loads_once", func(t *testing.T) {
		scope := testutil.NewScope()
		repo := newGatedRepository(scope)
		r := NewRegistry(repo, testOptions())

		var wg sync.WaitGroup
		got := make([]*Ledger, 2)
		for i := range got {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				l, err := r.Get(ctx, scope)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				got[i] = l
			}(i)
		}
		<-repo.entered
		close(repo.release)
		wg.Wait()

		if got[0] == nil || got[0] != got[1] {
			t.Error("expected both callers to share one ledger")
		}
		if n := repo.loads.Load(); n != 1 {
			t.Errorf("expected one load, got %d", n)
		}
	})
}
