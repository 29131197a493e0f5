// Package kitchen forwards order events to the kitchen as tickets. Tickets
// can go to the log, an Azure Service Bus queue, an AMQP 1.0 broker or a
// Temporal workflow.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/order"
	"github.com/itsneelabh/sushichat/resilience"
)

// Ticket is what the kitchen sees of an order transition.
type Ticket struct {
	ID           string       `json:"id"`
	OrderID      string       `json:"order_id"`
	Event        string       `json:"event"`
	Lines        []TicketLine `json:"lines"`
	Units        int          `json:"units"`
	Total        string       `json:"total"`
	CustomerName string       `json:"customer_name,omitempty"`
	PickupTime   string       `json:"pickup_time,omitempty"`
	At           time.Time    `json:"at"`
}

// TicketLine is one box to prepare.
type TicketLine struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// FromEvent builds the ticket for an order event.
func FromEvent(e order.Event) Ticket {
	lines := make([]TicketLine, len(e.Order.Lines))
	for i, l := range e.Order.Lines {
		lines[i] = TicketLine{Item: l.ItemName, Quantity: l.Quantity}
	}
	return Ticket{
		ID:           fmt.Sprintf("%s-%s-%d", e.Order.ID, e.Type, e.At.UnixNano()),
		OrderID:      e.Order.ID,
		Event:        string(e.Type),
		Lines:        lines,
		Units:        order.Units(e.Order.Lines),
		Total:        e.Order.Total.StringFixed(2),
		CustomerName: e.Order.CustomerName,
		PickupTime:   e.Order.PickupTime,
		At:           e.At,
	}
}

// Notifier delivers tickets.
type Notifier interface {
	Notify(ctx context.Context, t Ticket) error
}

// Closer is implemented by notifiers holding connections.
type Closer interface {
	Close(ctx context.Context) error
}

// Publisher adapts a Notifier to order.Publisher.
type Publisher struct {
	notifier Notifier
}

var _ order.Publisher = (*Publisher)(nil)

// NewPublisher wraps n.
func NewPublisher(n Notifier) *Publisher {
	return &Publisher{notifier: n}
}

// Publish converts the event and notifies.
func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	return p.notifier.Notify(ctx, FromEvent(e))
}

// LogNotifier writes tickets to the structured log.
type LogNotifier struct {
	logger core.Logger
}

// NewLogNotifier returns a notifier logging through logger.
func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: core.ComponentLogger(logger, "kitchen")}
}

func (n *LogNotifier) Notify(ctx context.Context, t Ticket) error {
	n.logger.InfoWithContext(ctx, "Kitchen ticket", map[string]interface{}{
		"operation":   "kitchen_notify",
		"ticket_id":   t.ID,
		"order_id":    t.OrderID,
		"event":       t.Event,
		"units":       t.Units,
		"pickup_time": t.PickupTime,
	})
	return nil
}

// Retrying retries a notifier on transient failures.
type Retrying struct {
	next   Notifier
	config *resilience.RetryConfig
	logger core.Logger
}

// NewRetrying wraps n. A nil config uses resilience.DefaultRetryConfig.
func NewRetrying(n Notifier, config *resilience.RetryConfig, logger core.Logger) *Retrying {
	return &Retrying{next: n, config: config, logger: core.ComponentLogger(logger, "kitchen")}
}

func (r *Retrying) Notify(ctx context.Context, t Ticket) error {
	return resilience.Retry(ctx, r.config, r.logger, func(ctx context.Context) error {
		return r.next.Notify(ctx, t)
	})
}

// Close closes the wrapped notifier when it holds resources.
func (r *Retrying) Close(ctx context.Context) error {
	if c, ok := r.next.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

// Multi fans a ticket out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, t Ticket) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier that holds resources.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(Closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
