package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vjranagit/ecoatlas/pkg/storage"
	"github.com/vjranagit/ecoatlas/pkg/types"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingStore counts queries and can be told to fail
type countingStore struct {
	storage.Store
	queries atomic.Int64
	fail    error
}

func (c *countingStore) Query(ctx context.Context, q *types.Query) ([]types.Row, error) {
	c.queries.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Store.Query(ctx, q)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Insert(context.Background(), "countries", []types.Row{
		{"id": 1, "name": "Brazil", "region": "South America"},
		{"id": 2, "name": "Peru", "region": "South America"},
		{"id": 3, "name": "Kenya", "region": "Africa"},
	}))
	return &countingStore{Store: mem}
}

func TestResolveCachesHits(t *testing.T) {
	store := newStore(t)
	r := New(store)
	ctx := context.Background()

	e, err := r.Resolve(ctx, "Brazil")
	require.NoError(t, err)
	assert.Equal(t, types.Entity{ID: "1", DisplayName: "Brazil", Region: "South America"}, e)

	again, err := r.Resolve(ctx, "Brazil")
	require.NoError(t, err)
	assert.Equal(t, e, again)
	assert.Equal(t, int64(1), store.queries.Load(), "second resolve should hit the cache")
}

func TestResolveNotFoundIsRecoverable(t *testing.T) {
	r := New(newStore(t))

	_, err := r.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEntityNotFound))
	assert.False(t, errors.Is(err, types.ErrDataSource))
}

func TestResolveIsCaseSensitive(t *testing.T) {
	r := New(newStore(t))

	_, err := r.Resolve(context.Background(), "brazil")
	assert.True(t, errors.Is(err, types.ErrEntityNotFound))
}

func TestResolveRejectsEmptyName(t *testing.T) {
	_, err := New(newStore(t)).Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestResolveWrapsStoreFailure(t *testing.T) {
	store := newStore(t)
	store.fail = errors.New("connection reset")
	r := New(store)

	_, err := r.Resolve(context.Background(), "Brazil")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDataSource))

	var dse *types.DataSourceError
	require.True(t, errors.As(err, &dse))
	assert.Equal(t, "countries", dse.Table)
}

func TestInvalidateForcesRequery(t *testing.T) {
	store := newStore(t)
	r := New(store)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "Peru")
	require.NoError(t, err)
	r.Invalidate()
	_, err = r.Resolve(ctx, "Peru")
	require.NoError(t, err)

	assert.Equal(t, int64(2), store.queries.Load())
}

func TestConcurrentResolveSameName(t *testing.T) {
	store := newStore(t)
	r := New(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := r.Resolve(ctx, "Kenya")
			assert.NoError(t, err)
			assert.Equal(t, "3", e.ID)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, store.queries.Load(), int64(32))
	e, ok := r.cache.Get("Kenya")
	assert.True(t, ok)
	assert.Equal(t, "Africa", e.Region)
}

func TestRegionListsEntitiesSorted(t *testing.T) {
	r := New(newStore(t))

	entities, err := r.Region(context.Background(), "South America")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Brazil", entities[0].DisplayName)
	assert.Equal(t, "Peru", entities[1].DisplayName)

	_, err = r.Region(context.Background(), "Antarctica")
	assert.True(t, errors.Is(err, types.ErrEntityNotFound))
}

func TestAllWarmsCache(t *testing.T) {
	store := newStore(t)
	r := New(store)
	ctx := context.Background()

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = r.Resolve(ctx, "Kenya")
	require.NoError(t, err)
	assert.Equal(t, int64(1), store.queries.Load())
}

// gatedStore holds every query until release is closed or the query's context ends
type gatedStore struct {
	*countingStore
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedStore) Query(ctx context.Context, q *types.Query) ([]types.Row, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.countingStore.Query(ctx, q)
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	store := &gatedStore{
		countingStore: newStore(t),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	r := New(store)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx, "Brazil")
		firstErr <- err
	}()
	<-store.entered

	// the first caller gives up while its lookup is still in flight
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	type result struct {
		e   types.Entity
		err error
	}
	second := make(chan result, 1)
	go func() {
		e, err := r.Resolve(context.Background(), "Brazil")
		second <- result{e, err}
	}()
	close(store.release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "1", got.e.ID)
	assert.Equal(t, int64(1), store.queries.Load(), "the live caller shares the detached lookup")
}
