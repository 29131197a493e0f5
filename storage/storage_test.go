package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/order"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(core.StorageConfig{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		AutoMigrate: true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, db.SeedCatalog(context.Background(), catalog.DefaultSeed(), SeedOptions{}))
	return db
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(core.StorageConfig{Driver: "postgres", DSN: "x"}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = Open(core.StorageConfig{Driver: "sqlite"}, nil)
	assert.ErrorIs(t, err, core.ErrMissingConfiguration)
}

func TestSeedAndLoadCatalog(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))
	n, err := db.CountProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	c, err := db.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Box Chica", "Box Mediana", "Box Grande", "Box Vegana (Mediana)"}, c.Names())
	chica, err := c.FindByName("chica")
	require.NoError(t, err)
	assert.Equal(t, "32.24", chica.PriceString())
	assert.Equal(t, []string{"Rollo California", "Rollo de Kanikama", "Rollo Philadelphia", "Rollo de Atún Picante"}, chica.Contents)

	info, err := db.LoadStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Av. Corrientes 1234, Buenos Aires, Argentina", info.GetAddress())
	assert.Equal(t, "22:00", info.GetHours().Weekdays.Close.String())
	assert.Equal(t, "Sábados y Domingos", info.GetHours().Weekends.Label)
}

func TestSeedKeepsLiveStockUnlessReset(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)

	o := &order.Order{Lines: []order.Line{order.NewLine("Box Chica", 5, decimal.RequireFromString("32.24"))}}
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, db.SeedCatalog(ctx, catalog.DefaultSeed(), SeedOptions{}))
	left, _, err := repo.Stock(ctx, "Box Chica")
	require.NoError(t, err)
	assert.Equal(t, 95, left)

	require.NoError(t, db.SeedCatalog(ctx, catalog.DefaultSeed(), SeedOptions{ResetStock: true}))
	left, _, err = repo.Stock(ctx, "Box Chica")
	require.NoError(t, err)
	assert.Equal(t, 100, left)
}

func TestOrderRepositoryLifecycle(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)
	price := decimal.RequireFromString("32.24")

	o := &order.Order{
		Lines:      []order.Line{order.NewLine("Box Chica", 2, price)},
		Total:      decimal.RequireFromString("64.48"),
		PickupTime: "21:00",
	}
	require.NoError(t, repo.Create(ctx, o))
	assert.True(t, strings.HasPrefix(o.ID, "ord_"))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, "64.48", got.Total.StringFixed(2))
	assert.Equal(t, "21:00", got.PickupTime)
	require.Len(t, got.Lines, 1)

	left, tracked, err := repo.Stock(ctx, "Box Chica")
	require.NoError(t, err)
	assert.True(t, tracked)
	assert.Equal(t, 98, left)

	updated, err := repo.UpdateLine(ctx, o.ID, "Box Chica", 4)
	require.NoError(t, err)
	assert.Equal(t, "128.96", updated.Total.StringFixed(2))
	left, _, _ = repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 96, left)

	_, err = repo.UpdateLine(ctx, o.ID, "Box Chica", 101)
	var stockErr *order.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 100, stockErr.Available)

	cancelled, err := repo.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	left, _, _ = repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 100, left)

	again, err := repo.Cancel(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrAlreadyCancelled)
	require.NotNil(t, again)
	left, _, _ = repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 100, left)

	_, err = repo.Get(ctx, "ord_missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderRepositoryCreateRollsBack(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)

	o := &order.Order{Lines: []order.Line{
		order.NewLine("Box Chica", 10, decimal.RequireFromString("32.24")),
		order.NewLine("Box Vegana (Mediana)", 1, decimal.RequireFromString("89.50")),
	}}
	err := repo.Create(ctx, o)
	var stockErr *order.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Box Vegana (Mediana)", stockErr.Item)
	assert.Equal(t, 0, stockErr.Available)

	left, _, _ := repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 100, left)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOrderRepositoryConcurrentCreate(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)
	price := decimal.RequireFromString("169.89")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &order.Order{Lines: []order.Line{order.NewLine("Box Grande", 10, price)}})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, order.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	left, _, err := repo.Stock(ctx, "Box Grande")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestDispatcherOverStorage(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	c, err := db.LoadCatalog(ctx)
	require.NoError(t, err)
	d := order.NewDispatcher(c, NewOrderRepository(db))

	out, err := d.Dispatch(ctx, order.Request{
		Lines:     []order.LineRequest{{ItemName: "Box Chica", Quantity: 2}},
		Confirmed: true,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Order)
	assert.Equal(t, "64.48", out.Order.Total.StringFixed(2))

	stored, err := d.Get(ctx, out.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
}
