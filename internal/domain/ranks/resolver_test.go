package ranks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/mod-bot/internal/domain/errs"
)

// mapStore локальная заглушка: пакет memory импортирует ranks.
type mapStore struct {
	mu   sync.RWMutex
	rows map[int64]Override
	err  error
}

func newMapStore() *mapStore { return &mapStore{rows: map[int64]Override{}} }

func (s *mapStore) Get(_ context.Context, id int64) (*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *mapStore) Upsert(_ context.Context, o Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows[o.SubjectID] = o
	return nil
}

func (s *mapStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.rows[id]
	delete(s.rows, id)
	return ok, nil
}

func (s *mapStore) List(_ context.Context) ([]Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Override
	for _, o := range s.rows {
		out = append(out, o)
	}
	return out, s.err
}

func (s *mapStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func newResolver(store Store) *Resolver {
	return NewResolver(Static{
		OwnerID:  1001,
		Devs:     []int64{2002},
		Supports: []int64{4004},
	}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOverrideScenario(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)

	assert.Equal(t, RankOwner, r.Resolve(ctx, 1001))
	assert.Equal(t, RankDev, r.Resolve(ctx, 2002))

	require.NoError(t, r.SetOverride(ctx, 2002, 3003, RankSudo))
	assert.Equal(t, RankSudo, r.Resolve(ctx, 3003))

	err := r.SetOverride(ctx, 4004, 5005, RankSudo)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	assert.Equal(t, RankUser, r.Resolve(ctx, 5005))
}

func TestUnknownUserIsUser(t *testing.T) {
	r := newResolver(newMapStore())
	assert.Equal(t, RankUser, r.Resolve(context.Background(), 777))
}

func TestAuthorizeMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)
	require.NoError(t, r.SetOverride(ctx, 1001, 3003, RankSudo))

	for _, user := range []int64{1001, 2002, 3003, 4004, 9999} {
		for i, hi := range All {
			if !r.Authorize(ctx, user, hi) {
				continue
			}
			for _, lo := range All[:i] {
				assert.True(t, r.Authorize(ctx, user, lo), "user %d: %s allowed but %s denied", user, hi, lo)
			}
		}
	}
}

func TestForbiddenNeverMutates(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)
	require.NoError(t, r.SetOverride(ctx, 2002, 3003, RankSupport))

	for _, actor := range []int64{3003, 4004, 9999} {
		assert.ErrorIs(t, r.SetOverride(ctx, actor, 6006, RankDev), errs.ErrForbidden)
		assert.ErrorIs(t, r.ClearOverride(ctx, actor, 3003), errs.ErrForbidden)
	}
	assert.Equal(t, 1, store.len())
	assert.Equal(t, RankSupport, r.Resolve(ctx, 3003))
}

func TestOwnerIsInvalidTarget(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)

	assert.ErrorIs(t, r.SetOverride(ctx, 2002, 1001, RankUser), errs.ErrInvalidTarget)
	assert.ErrorIs(t, r.ClearOverride(ctx, 2002, 1001), errs.ErrInvalidTarget)
	assert.ErrorIs(t, r.SetOverride(ctx, 1001, 1001, RankDev), errs.ErrInvalidTarget)
	assert.Zero(t, store.len())
	assert.Equal(t, RankOwner, r.Resolve(ctx, 1001))
}

func TestOwnerRankNotAssignable(t *testing.T) {
	r := newResolver(newMapStore())
	assert.ErrorIs(t, r.SetOverride(context.Background(), 1001, 3003, RankOwner), errs.ErrInvalidTarget)
	assert.ErrorIs(t, r.SetOverride(context.Background(), 1001, 3003, Rank(9)), errs.ErrInvalidTarget)
}

func TestClearOverride(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)

	require.NoError(t, r.ClearOverride(ctx, 2002, 3003))

	require.NoError(t, r.SetOverride(ctx, 2002, 4004, RankUser))
	assert.Equal(t, RankUser, r.Resolve(ctx, 4004), "override wins over static list")

	require.NoError(t, r.ClearOverride(ctx, 2002, 4004))
	assert.Equal(t, RankSupport, r.Resolve(ctx, 4004))
}

func TestResolveFallsBackOnStoreError(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newResolver(store)
	require.NoError(t, r.SetOverride(ctx, 2002, 3003, RankSudo))

	store.err = errors.New("connection reset")
	assert.Equal(t, RankUser, r.Resolve(ctx, 3003))
	assert.Equal(t, RankDev, r.Resolve(ctx, 2002))
	assert.Equal(t, RankOwner, r.Resolve(ctx, 1001))

	assert.ErrorIs(t, r.SetOverride(ctx, 1001, 3003, RankDev), errs.ErrStorage)
}

func TestStaticDuplicatesTakeHigherRank(t *testing.T) {
	r := NewResolver(Static{OwnerID: 1, Devs: []int64{5}, Sudos: []int64{5, 6}, Supports: []int64{6, 1}}, nil, nil)
	ctx := context.Background()
	assert.Equal(t, RankDev, r.Resolve(ctx, 5))
	assert.Equal(t, RankSudo, r.Resolve(ctx, 6))
	assert.Equal(t, RankOwner, r.Resolve(ctx, 1))
}

func TestParseRank(t *testing.T) {
	for in, want := range map[string]Rank{"user": RankUser, "Support": RankSupport, "sudo": RankSudo, "admin": RankSudo, " dev ": RankDev, "owner": RankOwner} {
		got, err := ParseRank(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseRank("root")
	assert.Error(t, err)
}

func TestConcurrentSetAndResolve(t *testing.T) {
	ctx := context.Background()
	r := newResolver(newMapStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.SetOverride(ctx, 2002, 3003, RankSudo)
		}()
		go func() {
			defer wg.Done()
			rk := r.Resolve(ctx, 3003)
			assert.Contains(t, []Rank{RankUser, RankSudo}, rk)
		}()
	}
	wg.Wait()
}
