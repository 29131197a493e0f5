// Package catalog holds the restaurant's reference data: the boxes that can be
// ordered and the store's contact details and opening hours. Both are loaded
// once at startup and are read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/internal/textmatch"
)

// ErrItemNotFound is returned when no catalog entry matches a name.
var ErrItemNotFound = fmt.Errorf("catalog item %w", core.ErrNotFound)

// ErrInvalidCatalog is returned by New for malformed item lists.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Availability of a catalog item.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
)

// ParseAvailability accepts English and Spanish spellings. Empty means available.
func ParseAvailability(s string) (Availability, error) {
	switch textmatch.Fold(s) {
	case "", "available", "disponible", "si", "yes", "true":
		return Available, nil
	case "unavailable", "no disponible", "agotado", "sin stock", "no", "false":
		return Unavailable, nil
	}
	return "", fmt.Errorf("unknown availability %q: %w", s, ErrInvalidCatalog)
}

// Label is the customer-facing Spanish label.
func (a Availability) Label() string {
	if a == Unavailable {
		return "No disponible"
	}
	return "Disponible"
}

// Item is a purchasable box.
type Item struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	Contents     []string        `json:"contents"`
	Availability Availability    `json:"availability"`
	// Stock is the initial inventory; nil means the item is not stock-tracked.
	Stock *int `json:"stock,omitempty"`
}

// IsAvailable reports whether the item can be ordered.
func (i Item) IsAvailable() bool {
	return i.Availability != Unavailable
}

// PriceString renders the price with two decimals ("32.24").
func (i Item) PriceString() string {
	return i.Price.StringFixed(2)
}

// Catalog is an immutable, ordered set of items. Safe for concurrent reads.
type Catalog struct {
	items []Item
	index *textmatch.Index
}

// New validates items and builds a Catalog preserving their order.
func New(items []Item) (*Catalog, error) {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for idx, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, fmt.Errorf("item %d has no name: %w", idx, ErrInvalidCatalog)
		}
		key := textmatch.Fold(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate item %q: %w", name, ErrInvalidCatalog)
		}
		seen[key] = struct{}{}
		if !it.Price.IsPositive() {
			return nil, fmt.Errorf("item %q must have a positive price: %w", name, ErrInvalidCatalog)
		}
		if it.Stock != nil && *it.Stock < 0 {
			return nil, fmt.Errorf("item %q has negative stock: %w", name, ErrInvalidCatalog)
		}
		if it.Availability == "" {
			it.Availability = Available
		}
		it.Name = name
		it.Contents = append([]string(nil), it.Contents...)
		out = append(out, it)
	}
	c := &Catalog{items: out}
	c.index = textmatch.NewIndex(c.Names())
	return c, nil
}

// All returns every item in load order.
func (c *Catalog) All() []Item {
	return append([]Item(nil), c.items...)
}

// ListAvailable returns the available items in load order.
func (c *Catalog) ListAvailable() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if it.IsAvailable() {
			out = append(out, it)
		}
	}
	return out
}

// Names returns every item name in load order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, it := range c.items {
		names[i] = it.Name
	}
	return names
}

// FindByName resolves a customer-supplied name. Exact (case and accent
// insensitive) matches win, then containment in either direction in load
// order, then a keyword match where every distinguishing word of the query
// belongs to the item name.
func (c *Catalog) FindByName(name string) (Item, error) {
	if textmatch.Fold(name) == "" {
		return Item{}, ErrItemNotFound
	}
	for _, it := range c.items {
		if textmatch.Equal(it.Name, name) {
			return it, nil
		}
	}
	for _, it := range c.items {
		if textmatch.Contains(it.Name, name) {
			return it, nil
		}
	}
	if best, ok := c.index.Match(name); ok {
		for _, it := range c.items {
			if it.Name == best {
				return it, nil
			}
		}
	}
	return Item{}, ErrItemNotFound
}
