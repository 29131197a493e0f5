// Package order turns tool-call arguments into validated, priced orders and
// walks them through the propose then confirm lifecycle.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/itsneelabh/sushichat/core"
)

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", core.ErrNotFound)
	ErrLineNotFound      = fmt.Errorf("order line %w", core.ErrNotFound)
	ErrQuoteNotFound     = fmt.Errorf("quote %w", core.ErrNotFound)
	ErrAlreadyCancelled  = fmt.Errorf("order already cancelled: %w", core.ErrConflict)
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", core.ErrConflict)

	// ErrMalformedArguments is returned when tool arguments are not a JSON object.
	ErrMalformedArguments = errors.New("malformed order arguments")
)

// StockError reports how many units of an item were left when a reservation failed.
type StockError struct {
	Item      string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d units of %s left: %v", e.Available, e.Item, ErrInsufficientStock)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Status of a persisted order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// LineRequest is one requested item before validation.
type LineRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// Request is the normalized shape of every accepted order argument form.
type Request struct {
	Lines        []LineRequest `json:"lines"`
	Confirmed    bool          `json:"confirmed"`
	QuoteID      string        `json:"quote_id,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	PickupTime   string        `json:"pickup_time,omitempty"`
	CustomerName string        `json:"customer_name,omitempty"`
}

// Line is a validated, priced order line. ItemName is the canonical catalog name.
type Line struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewLine prices quantity units at unitPrice.
func NewLine(item string, quantity int, unitPrice decimal.Decimal) Line {
	return Line{
		ItemName:  item,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Order is a confirmed customer order.
type Order struct {
	ID           string          `json:"id"`
	Lines        []Line          `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	Status       Status          `json:"status"`
	CustomerName string          `json:"customer_name,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	PickupTime   string          `json:"pickup_time,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewOrderID returns "ord_" followed by 8 hex characters.
func NewOrderID() string {
	return "ord_" + uuid.NewString()[:8]
}

// Total sums line subtotals.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Units is the number of boxes across all lines.
func Units(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Recalculate refreshes subtotals and the total from quantities and unit prices.
func (o *Order) Recalculate() {
	for i := range o.Lines {
		o.Lines[i] = NewLine(o.Lines[i].ItemName, o.Lines[i].Quantity, o.Lines[i].UnitPrice)
	}
	o.Total = Total(o.Lines)
}

// Line returns the index of the line for item, or -1.
func (o *Order) Line(item string) int {
	for i, l := range o.Lines {
		if strings.EqualFold(l.ItemName, item) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	return &c
}

// Describe renders the lines as "2 Box Chica, 1 Box Grande".
func (o *Order) Describe() string {
	parts := make([]string, len(o.Lines))
	for i, l := range o.Lines {
		parts[i] = fmt.Sprintf("%d %s", l.Quantity, l.ItemName)
	}
	return strings.Join(parts, ", ")
}
