package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
)

const storeRowID = 1

// SeedOptions controls how an existing catalog is overwritten.
type SeedOptions struct {
	// ResetStock overwrites the live stock of existing boxes with the seed values.
	ResetStock bool
}

// SeedCatalog upserts every box by name and the store row.
func (d *DB) SeedCatalog(ctx context.Context, seed *catalog.Seed, opts SeedOptions) error {
	boxes := make([]Box, 0, len(seed.Items))
	for i, it := range seed.Items {
		contents, err := json.Marshal(it.Contents)
		if err != nil {
			return err
		}
		boxes = append(boxes, Box{
			Name:         it.Name,
			Price:        it.Price.StringFixed(2),
			Description:  it.Description,
			Contents:     string(contents),
			Availability: string(it.Availability),
			Stock:        it.Stock,
			Position:     i,
		})
	}

	update := []string{"price", "description", "contents", "availability", "position", "updated_at"}
	if opts.ResetStock {
		update = append(update, "stock")
	}

	hours := seed.Store.Hours
	store := Store{
		ID:            storeRowID,
		Name:          seed.Store.Name,
		Address:       seed.Store.Address,
		Phone:         seed.Store.Phone,
		Email:         seed.Store.Email,
		Timezone:      seed.Store.Timezone,
		WeekdaysLabel: hours.Weekdays.Label,
		WeekdaysOpen:  hours.Weekdays.Open.String(),
		WeekdaysClose: hours.Weekdays.Close.String(),
		WeekendsLabel: hours.Weekends.Label,
		WeekendsOpen:  hours.Weekends.Open.String(),
		WeekendsClose: hours.Weekends.Close.String(),
	}

	err := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(boxes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns(update),
			}).Create(&boxes).Error; err != nil {
				return fmt.Errorf("upsert boxes: %w", err)
			}
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&store).Error; err != nil {
			return fmt.Errorf("upsert store: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.logger.InfoWithContext(ctx, "Catalog seeded", map[string]interface{}{
		"operation":   "catalog_seed",
		"boxes":       len(boxes),
		"reset_stock": opts.ResetStock,
	})
	return nil
}

// LoadCatalog reads the boxes in seed order. Box.Stock is the live stock.
func (d *DB) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var boxes []Box
	if err := d.gorm.WithContext(ctx).Order("position, id").Find(&boxes).Error; err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}

	items := make([]catalog.Item, 0, len(boxes))
	for _, b := range boxes {
		price, err := decimal.NewFromString(b.Price)
		if err != nil {
			return nil, fmt.Errorf("box %q price %q: %w", b.Name, b.Price, catalog.ErrInvalidCatalog)
		}
		var contents []string
		if b.Contents != "" {
			if err := json.Unmarshal([]byte(b.Contents), &contents); err != nil {
				return nil, fmt.Errorf("box %q contents: %w", b.Name, err)
			}
		}
		availability, err := catalog.ParseAvailability(b.Availability)
		if err != nil {
			return nil, err
		}
		items = append(items, catalog.Item{
			Name:         b.Name,
			Price:        price,
			Description:  b.Description,
			Contents:     contents,
			Availability: availability,
			Stock:        b.Stock,
		})
	}
	return catalog.New(items)
}

// LoadStore reads the store row.
func (d *DB) LoadStore(ctx context.Context) (catalog.StoreInfo, error) {
	var row Store
	err := d.gorm.WithContext(ctx).First(&row, storeRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalog.StoreInfo{}, fmt.Errorf("store info %w", core.ErrNotFound)
	}
	if err != nil {
		return catalog.StoreInfo{}, fmt.Errorf("load store: %w", err)
	}

	weekdays, err := dayHours(row.WeekdaysLabel, row.WeekdaysOpen, row.WeekdaysClose)
	if err != nil {
		return catalog.StoreInfo{}, err
	}
	weekends, err := dayHours(row.WeekendsLabel, row.WeekendsOpen, row.WeekendsClose)
	if err != nil {
		return catalog.StoreInfo{}, err
	}
	return catalog.NewStoreInfo(catalog.StoreInfo{
		Name:     row.Name,
		Address:  row.Address,
		Phone:    row.Phone,
		Email:    row.Email,
		Timezone: row.Timezone,
		Hours:    catalog.WeeklyHours{Weekdays: weekdays, Weekends: weekends},
	})
}

func dayHours(label, open, closing string) (catalog.DayHours, error) {
	o, err := catalog.ParseTimeOfDay(open)
	if err != nil {
		return catalog.DayHours{}, err
	}
	c, err := catalog.ParseTimeOfDay(closing)
	if err != nil {
		return catalog.DayHours{}, err
	}
	return catalog.DayHours{Label: label, Open: o, Close: c}, nil
}

// CountProducts returns the number of boxes.
func (d *DB) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := d.gorm.WithContext(ctx).Model(&Box{}).Count(&n).Error
	return n, err
}
