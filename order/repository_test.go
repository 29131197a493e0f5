package order

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
)

func stockedItems(n int) []catalog.Item {
	return []catalog.Item{
		{Name: "Box Chica", Price: decimal.RequireFromString("32.24"), Stock: &n},
		{Name: "Box Libre", Price: decimal.RequireFromString("10")},
	}
}

func TestMemoryRepositoryConcurrentCreate(t *testing.T) {
	repo := NewMemoryRepository(stockedItems(10))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := &Order{Lines: []Line{NewLine("Box Chica", 1, decimal.RequireFromString("32.24"))}}
			err := repo.Create(ctx, o)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
				rejected++
				return
			}
			placed++
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, placed)
	assert.Equal(t, 15, rejected)
	left, tracked, err := repo.Stock(ctx, "Box Chica")
	require.NoError(t, err)
	assert.True(t, tracked)
	assert.Equal(t, 0, left)
}

func TestMemoryRepositoryCreateIsAllOrNothing(t *testing.T) {
	repo := NewMemoryRepository(stockedItems(3))
	ctx := context.Background()
	price := decimal.RequireFromString("32.24")

	err := repo.Create(ctx, &Order{Lines: []Line{
		NewLine("Box Libre", 5, decimal.NewFromInt(10)),
		NewLine("Box Chica", 2, price),
		NewLine("Box Chica", 2, price),
	}})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	left, _, _ := repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 3, left)
	_, tracked, _ := repo.Stock(ctx, "Box Libre")
	assert.False(t, tracked)
}

func TestMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryRepository(stockedItems(10))
	ctx := context.Background()

	o := &Order{Lines: []Line{NewLine("Box Chica", 2, decimal.RequireFromString("32.24"))}}
	require.NoError(t, repo.Create(ctx, o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	got.Lines[0].Quantity = 99
	again, _ := repo.Get(ctx, o.ID)
	assert.Equal(t, 2, again.Lines[0].Quantity, "Get must return a copy")

	updated, err := repo.UpdateLine(ctx, o.ID, "box chica", 4)
	require.NoError(t, err)
	assert.Equal(t, "128.96", updated.Total.StringFixed(2))
	left, _, _ := repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 6, left)

	_, err = repo.UpdateLine(ctx, o.ID, "Box Libre", 1)
	assert.ErrorIs(t, err, ErrLineNotFound)

	cancelled, err := repo.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	left, _, _ = repo.Stock(ctx, "Box Chica")
	assert.Equal(t, 10, left)

	_, err = repo.Cancel(ctx, o.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	_, err = repo.UpdateLine(ctx, o.ID, "Box Chica", 1)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	_, err = repo.Get(ctx, "ord_none")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
