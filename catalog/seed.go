package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// RuleScope selects what a guard rule is evaluated against.
type RuleScope string

const (
	// ScopeLine rules see {"item", "quantity", "unit_price", "subtotal"}.
	ScopeLine RuleScope = "line"
	// ScopeOrder rules see {"lines", "units", "total"}.
	ScopeOrder RuleScope = "order"
)

// OrderRule is a JSON-logic guard applied to validated orders.
// Message may contain "{item}" for line rules.
type OrderRule struct {
	Name    string          `json:"name"`
	Scope   RuleScope       `json:"scope"`
	Logic   json.RawMessage `json:"rule"`
	Message string          `json:"message"`
}

// Seed is the reference data the service boots with.
type Seed struct {
	Store StoreInfo
	Items []Item
	Rules []OrderRule
}

// Catalog builds the item catalog from the seed.
func (s *Seed) Catalog() (*Catalog, error) {
	return New(s.Items)
}

type seedFile struct {
	Store struct {
		Name     string `yaml:"name"`
		Address  string `yaml:"address"`
		Phone    string `yaml:"phone"`
		Email    string `yaml:"email"`
		Timezone string `yaml:"timezone"`
		Hours    struct {
			Weekdays seedHours `yaml:"weekdays"`
			Weekends seedHours `yaml:"weekends"`
		} `yaml:"hours"`
	} `yaml:"store"`
	Items []struct {
		Name         string   `yaml:"name"`
		Price        string   `yaml:"price"`
		Description  string   `yaml:"description"`
		Contents     []string `yaml:"contents"`
		Availability string   `yaml:"availability"`
		Stock        *int     `yaml:"stock"`
	} `yaml:"items"`
	Rules []struct {
		Name    string                 `yaml:"name"`
		Scope   string                 `yaml:"scope"`
		Rule    map[string]interface{} `yaml:"rule"`
		Message string                 `yaml:"message"`
	} `yaml:"rules"`
}

type seedHours struct {
	Label string `yaml:"label"`
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

func (h seedHours) parse(fallback string) (DayHours, error) {
	open, err := ParseTimeOfDay(h.Open)
	if err != nil {
		return DayHours{}, err
	}
	closing, err := ParseTimeOfDay(h.Close)
	if err != nil {
		return DayHours{}, err
	}
	label := h.Label
	if label == "" {
		label = fallback
	}
	return DayHours{Label: label, Open: open, Close: closing}, nil
}

// LoadSeed parses a YAML seed document.
func LoadSeed(r io.Reader) (*Seed, error) {
	var raw seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	weekdays, err := raw.Store.Hours.Weekdays.parse("Lunes a Viernes")
	if err != nil {
		return nil, fmt.Errorf("weekday hours: %w", err)
	}
	weekends, err := raw.Store.Hours.Weekends.parse("Sábados y Domingos")
	if err != nil {
		return nil, fmt.Errorf("weekend hours: %w", err)
	}
	store, err := NewStoreInfo(StoreInfo{
		Name:     raw.Store.Name,
		Address:  raw.Store.Address,
		Phone:    raw.Store.Phone,
		Email:    raw.Store.Email,
		Timezone: raw.Store.Timezone,
		Hours:    WeeklyHours{Weekdays: weekdays, Weekends: weekends},
	})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw.Items))
	for _, ri := range raw.Items {
		price, err := decimal.NewFromString(ri.Price)
		if err != nil {
			return nil, fmt.Errorf("item %q price %q: %w", ri.Name, ri.Price, ErrInvalidCatalog)
		}
		availability, err := ParseAvailability(ri.Availability)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", ri.Name, err)
		}
		items = append(items, Item{
			Name:         ri.Name,
			Price:        price,
			Description:  ri.Description,
			Contents:     ri.Contents,
			Availability: availability,
			Stock:        ri.Stock,
		})
	}
	// validate names and prices up front so a bad seed fails at load
	if _, err := New(items); err != nil {
		return nil, err
	}

	rules := make([]OrderRule, 0, len(raw.Rules))
	for _, rr := range raw.Rules {
		scope := RuleScope(rr.Scope)
		if scope != ScopeLine && scope != ScopeOrder {
			return nil, fmt.Errorf("rule %q has unknown scope %q: %w", rr.Name, rr.Scope, ErrInvalidCatalog)
		}
		if len(rr.Rule) == 0 {
			return nil, fmt.Errorf("rule %q is empty: %w", rr.Name, ErrInvalidCatalog)
		}
		logic, err := json.Marshal(rr.Rule)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rr.Name, err)
		}
		rules = append(rules, OrderRule{Name: rr.Name, Scope: scope, Logic: logic, Message: rr.Message})
	}

	return &Seed{Store: store, Items: items, Rules: rules}, nil
}

// LoadSeedFile reads a seed from disk.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// DefaultSeed returns the built-in seed.
func DefaultSeed() *Seed {
	seed, err := LoadSeed(bytes.NewReader(defaultSeed))
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return seed
}

// Load returns the seed at path, or the built-in one when path is empty.
func Load(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	return LoadSeedFile(path)
}
