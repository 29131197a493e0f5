package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/itsneelabh/sushichat/order"
)

// OrderRepository implements order.Repository. Stock reservation and order
// writes share one transaction.
type OrderRepository struct {
	db  *DB
	now func() time.Time
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository returns a repository over db.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = order.NewOrderID()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	o.UpdatedAt = o.CreatedAt

	need := make(map[string]int)
	var names []string
	for _, l := range o.Lines {
		if _, seen := need[l.ItemName]; !seen {
			names = append(names, l.ItemName)
		}
		need[l.ItemName] += l.Quantity
	}

	return r.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			if err := reserve(tx, name, need[name]); err != nil {
				return err
			}
		}
		rec := toRecord(o)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		return nil
	})
}

// reserve takes qty units of item when the item is stock-tracked.
func reserve(tx *gorm.DB, item string, qty int) error {
	res := tx.Model(&Box{}).
		Where("name = ? AND stock IS NOT NULL AND stock >= ?", item, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve %s: %w", item, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	left, tracked, err := stockOf(tx, item)
	if err != nil {
		return err
	}
	if tracked {
		return &order.StockError{Item: item, Available: left}
	}
	return nil
}

func release(tx *gorm.DB, item string, qty int) error {
	err := tx.Model(&Box{}).
		Where("name = ? AND stock IS NOT NULL", item).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
	if err != nil {
		return fmt.Errorf("release %s: %w", item, err)
	}
	return nil
}

func stockOf(tx *gorm.DB, item string) (int, bool, error) {
	var box Box
	err := tx.Select("stock").Where("name = ?", item).Take(&box).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("stock of %s: %w", item, err)
	}
	if box.Stock == nil {
		return 0, false, nil
	}
	return *box.Stock, true, nil
}

func loadOrder(tx *gorm.DB, id string) (*OrderRecord, error) {
	var rec OrderRecord
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return &rec, nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rec, err := loadOrder(r.db.gorm.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec)
}

func (r *OrderRepository) UpdateLine(ctx context.Context, id, item string, quantity int) (*order.Order, error) {
	var updated *order.Order
	err := r.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		o, err := fromRecord(rec)
		if err != nil {
			return err
		}
		if o.Status == order.StatusCancelled {
			return order.ErrAlreadyCancelled
		}
		idx := o.Line(item)
		if idx < 0 {
			return order.ErrLineNotFound
		}

		line := o.Lines[idx]
		left, tracked, err := stockOf(tx, line.ItemName)
		if err != nil {
			return err
		}
		if tracked {
			if quantity > left+line.Quantity {
				return &order.StockError{Item: line.ItemName, Available: left + line.Quantity}
			}
			if err := tx.Model(&Box{}).Where("name = ?", line.ItemName).
				Update("stock", left+line.Quantity-quantity).Error; err != nil {
				return fmt.Errorf("adjust stock of %s: %w", line.ItemName, err)
			}
		}

		o.Lines[idx].Quantity = quantity
		o.Recalculate()
		o.UpdatedAt = r.now()

		l := o.Lines[idx]
		if err := tx.Model(&OrderLineRecord{}).Where("id = ?", rec.Lines[idx].ID).Updates(map[string]interface{}{
			"quantity": l.Quantity,
			"subtotal": l.Subtotal.StringFixed(2),
		}).Error; err != nil {
			return fmt.Errorf("update line: %w", err)
		}
		if err := tx.Model(&OrderRecord{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
			"total":      o.Total.StringFixed(2),
			"updated_at": o.UpdatedAt,
		}).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) Cancel(ctx context.Context, id string) (*order.Order, error) {
	var result *order.Order
	err := r.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		o, err := fromRecord(rec)
		if err != nil {
			return err
		}
		result = o
		if o.Status == order.StatusCancelled {
			return order.ErrAlreadyCancelled
		}

		// the status guard makes a concurrent second cancel a no-op
		res := tx.Model(&OrderRecord{}).
			Where("id = ? AND status <> ?", id, string(order.StatusCancelled)).
			Updates(map[string]interface{}{"status": string(order.StatusCancelled), "updated_at": r.now()})
		if res.Error != nil {
			return fmt.Errorf("cancel order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return order.ErrAlreadyCancelled
		}
		for _, l := range o.Lines {
			if err := release(tx, l.ItemName, l.Quantity); err != nil {
				return err
			}
		}
		o.Status = order.StatusCancelled
		o.UpdatedAt = r.now()
		return nil
	})
	if errors.Is(err, order.ErrAlreadyCancelled) {
		return result, err
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *OrderRepository) Stock(ctx context.Context, item string) (int, bool, error) {
	return stockOf(r.db.gorm.WithContext(ctx), item)
}

func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	var recs []OrderRecord
	err := r.db.gorm.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Order("created_at").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*order.Order, 0, len(recs))
	for i := range recs {
		o, err := fromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func toRecord(o *order.Order) OrderRecord {
	rec := OrderRecord{
		ID:           o.ID,
		Status:       string(o.Status),
		Total:        o.Total.StringFixed(2),
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		PickupTime:   o.PickupTime,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for i, l := range o.Lines {
		rec.Lines = append(rec.Lines, OrderLineRecord{
			OrderID:   o.ID,
			Position:  i,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	return rec
}

func fromRecord(rec *OrderRecord) (*order.Order, error) {
	total, err := decimal.NewFromString(rec.Total)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", rec.ID, err)
	}
	o := &order.Order{
		ID:           rec.ID,
		Total:        total,
		Status:       order.Status(rec.Status),
		CustomerName: rec.CustomerName,
		Phone:        rec.Phone,
		PickupTime:   rec.PickupTime,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	for _, lr := range rec.Lines {
		price, err := decimal.NewFromString(lr.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order %s line %s price: %w", rec.ID, lr.ItemName, err)
		}
		o.Lines = append(o.Lines, order.NewLine(lr.ItemName, lr.Quantity, price))
	}
	return o, nil
}
