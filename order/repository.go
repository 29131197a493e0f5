package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/itsneelabh/sushichat/catalog"
)

// Repository persists orders together with the stock they reserve.
// Every method is atomic with respect to stock.
type Repository interface {
	// Create reserves stock for every tracked line and stores the order,
	// or changes nothing and returns a *StockError.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// UpdateLine sets the quantity of item, moving the difference in or out of stock.
	UpdateLine(ctx context.Context, id, item string, quantity int) (*Order, error)
	// Cancel marks the order cancelled and restores its stock once.
	Cancel(ctx context.Context, id string) (*Order, error)
	// Stock returns the units left for item and whether the item is tracked.
	Stock(ctx context.Context, item string) (int, bool, error)
	List(ctx context.Context) ([]*Order, error)
}

// MemoryRepository keeps orders and stock in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
	stock  map[string]int
	now    func() time.Time
}

// NewMemoryRepository seeds stock from the tracked catalog items.
func NewMemoryRepository(items []catalog.Item) *MemoryRepository {
	stock := make(map[string]int)
	for _, it := range items {
		if it.Stock != nil {
			stock[it.Name] = *it.Stock
		}
	}
	return &MemoryRepository{
		orders: make(map[string]*Order),
		stock:  stock,
		now:    time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	need := make(map[string]int)
	for _, l := range o.Lines {
		need[l.ItemName] += l.Quantity
	}
	for item, qty := range need {
		if left, tracked := r.stock[item]; tracked && left < qty {
			return &StockError{Item: item, Available: left}
		}
	}
	for item, qty := range need {
		if _, tracked := r.stock[item]; tracked {
			r.stock[item] -= qty
		}
	}

	if o.ID == "" {
		o.ID = NewOrderID()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *MemoryRepository) UpdateLine(ctx context.Context, id, item string, quantity int) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	idx := o.Line(item)
	if idx < 0 {
		return nil, ErrLineNotFound
	}

	line := o.Lines[idx]
	if left, tracked := r.stock[line.ItemName]; tracked {
		if quantity > left+line.Quantity {
			return nil, &StockError{Item: line.ItemName, Available: left + line.Quantity}
		}
		r.stock[line.ItemName] = left + line.Quantity - quantity
	}

	o.Lines[idx].Quantity = quantity
	o.Recalculate()
	o.UpdatedAt = r.now()
	return o.Clone(), nil
}

func (r *MemoryRepository) Cancel(ctx context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status == StatusCancelled {
		return o.Clone(), ErrAlreadyCancelled
	}
	for _, l := range o.Lines {
		if _, tracked := r.stock[l.ItemName]; tracked {
			r.stock[l.ItemName] += l.Quantity
		}
	}
	o.Status = StatusCancelled
	o.UpdatedAt = r.now()
	return o.Clone(), nil
}

func (r *MemoryRepository) Stock(ctx context.Context, item string) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	left, tracked := r.stock[item]
	return left, tracked, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
