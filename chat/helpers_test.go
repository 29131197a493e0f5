package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/order"
)

type fixture struct {
	seed       *catalog.Seed
	repo       *order.MemoryRepository
	dispatcher *order.Dispatcher
	router     *Router
	now        time.Time
}

// tuesday15 is Tuesday 14 January 2025, 15:00 store time.
func tuesday15(store catalog.StoreInfo) time.Time {
	return time.Date(2025, time.January, 14, 15, 0, 0, 0, store.Location())
}

func newFixture(t *testing.T, opts ...order.DispatcherOption) *fixture {
	t.Helper()
	seed := catalog.DefaultSeed()
	c, err := seed.Catalog()
	require.NoError(t, err)
	guards, err := order.NewGuards(seed.Rules)
	require.NoError(t, err)

	f := &fixture{seed: seed, now: tuesday15(seed.Store)}
	f.repo = order.NewMemoryRepository(c.All())
	clock := func() time.Time { return f.now }
	f.dispatcher = order.NewDispatcher(c, f.repo, append([]order.DispatcherOption{
		order.WithGuards(guards),
		order.WithClock(clock),
	}, opts...)...)
	f.router = NewRouter(f.dispatcher, seed.Store, WithRouterClock(clock))
	return f
}

func (f *fixture) stock(t *testing.T, item string) int {
	t.Helper()
	left, tracked, err := f.repo.Stock(context.Background(), item)
	require.NoError(t, err)
	require.True(t, tracked)
	return left
}

type failingRepo struct{ *order.MemoryRepository }

func (failingRepo) Create(context.Context, *order.Order) error { return errors.New("database is locked") }
