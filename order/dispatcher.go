package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
)

// State of an order conversation after a dispatch.
type State string

const (
	AwaitingItems        State = "awaiting_items"
	AwaitingConfirmation State = "awaiting_confirmation"
	Confirmed            State = "confirmed"
	Rejected             State = "rejected"
)

// Outcome is the result of a dispatcher operation. Status follows HTTP
// semantics so transports can forward it.
type Outcome struct {
	State   State            `json:"state,omitempty"`
	Status  int              `json:"-"`
	Message string           `json:"message"`
	Quote   *Quote           `json:"quote,omitempty"`
	Order   *Order           `json:"order,omitempty"`
	Errors  ValidationErrors `json:"errors,omitempty"`
}

// ChangeRequest sets the quantity of one line of an existing order.
// ItemName may be empty for single-line orders.
type ChangeRequest struct {
	OrderID     string `json:"order_id"`
	ItemName    string `json:"item_name,omitempty"`
	NewQuantity int    `json:"new_quantity"`
}

// Dispatcher runs the propose then confirm order flow.
type Dispatcher struct {
	catalog   *catalog.Catalog
	validator *Validator
	repo      Repository
	quotes    *QuoteStore
	publisher Publisher
	logger    core.Logger
	telemetry core.Telemetry
	now       func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithGuards enables JSON-logic guard rules.
func WithGuards(g *Guards) DispatcherOption {
	return func(d *Dispatcher) { d.validator.guards = g }
}

// WithQuoteStore replaces the default in-process quote store.
func WithQuoteStore(s *QuoteStore) DispatcherOption {
	return func(d *Dispatcher) { d.quotes = s }
}

// WithPublisher sets where order events go.
func WithPublisher(p Publisher) DispatcherOption {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = core.ComponentLogger(l, "order")
		d.validator.logger = d.logger
	}
}

// WithTelemetry sets spans and metrics.
func WithTelemetry(t core.Telemetry) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.telemetry = t
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher wires a dispatcher over a catalog and a repository.
func NewDispatcher(c *catalog.Catalog, repo Repository, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		catalog:   c,
		validator: NewValidator(c, nil, nil),
		repo:      repo,
		quotes:    NewQuoteStore(core.NewMemoryStore(), DefaultQuoteTTL),
		publisher: noopPublisher{},
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the catalog the dispatcher validates against.
func (d *Dispatcher) Catalog() *catalog.Catalog { return d.catalog }

// Listing renders the available catalog with live stock.
func (d *Dispatcher) Listing(ctx context.Context) string {
	return Listing(d.catalog.ListAvailable(), func(item string) (int, bool) {
		left, tracked, err := d.repo.Stock(ctx, item)
		if err != nil {
			d.logger.WarnWithContext(ctx, "Stock lookup failed", map[string]interface{}{
				"operation": "order_listing",
				"item":      item,
				"error":     err.Error(),
			})
			return 0, false
		}
		return left, tracked
	})
}

// Dispatch proposes or confirms an order.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := d.telemetry.StartSpan(ctx, "order.Dispatch")
	defer span.End()
	span.SetAttribute("order.lines", len(req.Lines))
	span.SetAttribute("order.confirmed", req.Confirmed)

	if len(req.Lines) == 0 && req.QuoteID != "" {
		q, err := d.quotes.Get(ctx, req.QuoteID)
		if errors.Is(err, ErrQuoteNotFound) {
			return &Outcome{State: Rejected, Status: http.StatusBadRequest, Message: quoteExpiredMessage(req.QuoteID)}, nil
		}
		if err != nil {
			span.RecordError(err)
			return nil, &core.ServiceError{Op: "order.Dispatch", Kind: "order", ID: req.QuoteID, Err: err}
		}
		req = mergeQuote(req, q)
	}

	if len(req.Lines) == 0 {
		return &Outcome{
			State:   AwaitingItems,
			Status:  http.StatusOK,
			Message: d.Listing(ctx) + "\n\n" + msgChooseItem,
		}, nil
	}

	lines, verrs := d.validator.Validate(req)
	if len(verrs) > 0 {
		d.logger.InfoWithContext(ctx, "Order request rejected", map[string]interface{}{
			"operation": "order_validate",
			"errors":    verrs.Messages(),
		})
		d.countOrder("rejected")
		return &Outcome{State: Rejected, Status: http.StatusBadRequest, Message: rejectedMessage(verrs), Errors: verrs}, nil
	}

	if !req.Confirmed {
		return d.propose(ctx, req, lines)
	}
	return d.confirm(ctx, req, lines)
}

func mergeQuote(req Request, q *Quote) Request {
	merged := q.Request()
	merged.Confirmed = req.Confirmed
	if req.Phone != "" {
		merged.Phone = req.Phone
	}
	if req.PickupTime != "" {
		merged.PickupTime = req.PickupTime
	}
	if req.CustomerName != "" {
		merged.CustomerName = req.CustomerName
	}
	return merged
}

func (d *Dispatcher) propose(ctx context.Context, req Request, lines []Line) (*Outcome, error) {
	q := &Quote{
		Lines:        lines,
		Total:        Total(lines),
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		PickupTime:   req.PickupTime,
		CreatedAt:    d.now(),
	}
	if err := d.quotes.Save(ctx, q); err != nil {
		return nil, &core.ServiceError{Op: "order.propose", Kind: "order", Err: err}
	}
	if req.QuoteID != "" && req.QuoteID != q.ID {
		d.dropQuote(ctx, req.QuoteID)
	}

	d.logger.InfoWithContext(ctx, "Order quoted", map[string]interface{}{
		"operation": "order_quote",
		"quote_id":  q.ID,
		"total":     q.Total.StringFixed(2),
		"units":     Units(lines),
	})
	d.countOrder("quoted")
	return &Outcome{State: AwaitingConfirmation, Status: http.StatusOK, Message: quoteMessage(q), Quote: q}, nil
}

func (d *Dispatcher) confirm(ctx context.Context, req Request, lines []Line) (*Outcome, error) {
	now := d.now()
	o := &Order{
		ID:           NewOrderID(),
		Lines:        lines,
		Total:        Total(lines),
		Status:       StatusPending,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		PickupTime:   req.PickupTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := d.repo.Create(ctx, o); err != nil {
		var stockErr *StockError
		if errors.As(err, &stockErr) {
			d.countOrder("rejected")
			return &Outcome{State: Rejected, Status: http.StatusConflict, Message: insufficientStockMessage(stockErr)}, nil
		}
		d.logger.ErrorWithContext(ctx, "Failed to persist order", map[string]interface{}{
			"operation": "order_create",
			"error":     err.Error(),
		})
		return nil, &core.ServiceError{Op: "order.confirm", Kind: "order", Message: msgGenericError, Err: err}
	}
	if req.QuoteID != "" {
		d.dropQuote(ctx, req.QuoteID)
	}

	d.logger.InfoWithContext(ctx, "Order confirmed", map[string]interface{}{
		"operation": "order_create",
		"order_id":  o.ID,
		"total":     o.Total.StringFixed(2),
		"units":     Units(o.Lines),
	})
	d.countOrder("confirmed")
	d.publish(ctx, EventPlaced, o)
	return &Outcome{State: Confirmed, Status: http.StatusCreated, Message: confirmedMessage(o), Order: o}, nil
}

// Get returns a persisted order.
func (d *Dispatcher) Get(ctx context.Context, id string) (*Order, error) {
	return d.repo.Get(ctx, id)
}

// Stock reports units left for item and whether the item is stock-tracked.
func (d *Dispatcher) Stock(ctx context.Context, item string) (int, bool, error) {
	return d.repo.Stock(ctx, item)
}

// List returns every persisted order.
func (d *Dispatcher) List(ctx context.Context) ([]*Order, error) {
	return d.repo.List(ctx)
}

// Change updates the quantity of one line of a pending order.
func (d *Dispatcher) Change(ctx context.Context, req ChangeRequest) (*Outcome, error) {
	ctx, span := d.telemetry.StartSpan(ctx, "order.Change")
	defer span.End()
	span.SetAttribute("order.id", req.OrderID)

	if strings.TrimSpace(req.OrderID) == "" {
		return &Outcome{Status: http.StatusBadRequest, Message: msgMissingOrderID}, nil
	}
	o, err := d.repo.Get(ctx, req.OrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return &Outcome{Status: http.StatusNotFound, Message: orderNotFoundMessage(req.OrderID)}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, &core.ServiceError{Op: "order.Change", Kind: "order", ID: req.OrderID, Err: err}
	}
	if o.Status == StatusCancelled {
		return &Outcome{Status: http.StatusConflict, Message: alreadyCancelledMessage(o.ID), Order: o}, nil
	}
	if req.NewQuantity <= 0 {
		return &Outcome{Status: http.StatusBadRequest, Message: msgQuantityPositive, Order: o}, nil
	}

	item, outcome := d.changeTarget(o, req.ItemName)
	if outcome != nil {
		return outcome, nil
	}

	updated, err := d.repo.UpdateLine(ctx, o.ID, item, req.NewQuantity)
	var stockErr *StockError
	switch {
	case errors.As(err, &stockErr):
		return &Outcome{Status: http.StatusConflict, Message: changeStockMessage(stockErr.Available), Order: o}, nil
	case errors.Is(err, ErrAlreadyCancelled):
		return &Outcome{Status: http.StatusConflict, Message: alreadyCancelledMessage(o.ID), Order: o}, nil
	case errors.Is(err, ErrOrderNotFound):
		return &Outcome{Status: http.StatusNotFound, Message: orderNotFoundMessage(o.ID)}, nil
	case err != nil:
		span.RecordError(err)
		d.logger.ErrorWithContext(ctx, "Failed to update order", map[string]interface{}{
			"operation": "order_change",
			"order_id":  o.ID,
			"error":     err.Error(),
		})
		return nil, &core.ServiceError{Op: "order.Change", Kind: "order", ID: o.ID, Message: msgGenericError, Err: err}
	}

	line := updated.Lines[updated.Line(item)]
	d.logger.InfoWithContext(ctx, "Order changed", map[string]interface{}{
		"operation": "order_change",
		"order_id":  updated.ID,
		"item":      line.ItemName,
		"quantity":  line.Quantity,
		"total":     updated.Total.StringFixed(2),
	})
	d.countOrder("changed")
	d.publish(ctx, EventChanged, updated)
	return &Outcome{Status: http.StatusOK, Message: changedMessage(updated, line), Order: updated}, nil
}

func (d *Dispatcher) changeTarget(o *Order, itemName string) (string, *Outcome) {
	if strings.TrimSpace(itemName) == "" {
		if len(o.Lines) != 1 {
			return "", &Outcome{Status: http.StatusBadRequest, Message: msgChangeNeedsItem, Order: o}
		}
		return o.Lines[0].ItemName, nil
	}
	name := itemName
	if it, err := d.catalog.FindByName(itemName); err == nil {
		name = it.Name
	}
	if o.Line(name) < 0 {
		return "", &Outcome{Status: http.StatusBadRequest, Message: lineNotInOrderMessage(itemName), Order: o}
	}
	return name, nil
}

// Cancel cancels a pending order and restores its stock. Cancelling twice
// reports the earlier cancellation and restores nothing.
func (d *Dispatcher) Cancel(ctx context.Context, orderID string) (*Outcome, error) {
	ctx, span := d.telemetry.StartSpan(ctx, "order.Cancel")
	defer span.End()
	span.SetAttribute("order.id", orderID)

	if strings.TrimSpace(orderID) == "" {
		return &Outcome{Status: http.StatusBadRequest, Message: msgMissingOrderID}, nil
	}
	o, err := d.repo.Cancel(ctx, orderID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return &Outcome{Status: http.StatusNotFound, Message: orderNotFoundMessage(orderID)}, nil
	case errors.Is(err, ErrAlreadyCancelled):
		return &Outcome{Status: http.StatusOK, Message: alreadyCancelledMessage(orderID), Order: o}, nil
	case err != nil:
		span.RecordError(err)
		d.logger.ErrorWithContext(ctx, "Failed to cancel order", map[string]interface{}{
			"operation": "order_cancel",
			"order_id":  orderID,
			"error":     err.Error(),
		})
		return nil, &core.ServiceError{Op: "order.Cancel", Kind: "order", ID: orderID, Message: msgGenericError, Err: err}
	}

	d.logger.InfoWithContext(ctx, "Order cancelled", map[string]interface{}{
		"operation": "order_cancel",
		"order_id":  o.ID,
	})
	d.countOrder("cancelled")
	d.publish(ctx, EventCancelled, o)
	return &Outcome{Status: http.StatusOK, Message: cancelledMessage(o), Order: o}, nil
}

// Availability answers whether an item can be ordered and how many units are left.
func (d *Dispatcher) Availability(ctx context.Context, name string) (*Outcome, error) {
	item, err := d.catalog.FindByName(name)
	if err != nil {
		return &Outcome{Status: http.StatusOK, Message: productNotFoundMessage(name)}, nil
	}
	if !item.IsAvailable() {
		return &Outcome{Status: http.StatusOK, Message: fmt.Sprintf("%s no está disponible en este momento.", item.Name)}, nil
	}
	left, tracked, err := d.repo.Stock(ctx, item.Name)
	if err != nil {
		return nil, &core.ServiceError{Op: "order.Availability", Kind: "order", ID: item.Name, Err: err}
	}
	switch {
	case !tracked:
		return &Outcome{Status: http.StatusOK, Message: fmt.Sprintf("%s está disponible.", item.Name)}, nil
	case left <= 0:
		return &Outcome{Status: http.StatusOK, Message: fmt.Sprintf("%s no está disponible en este momento.", item.Name)}, nil
	}
	return &Outcome{Status: http.StatusOK, Message: fmt.Sprintf("Tenemos %d unidades de %s disponibles.", left, item.Name)}, nil
}

func (d *Dispatcher) dropQuote(ctx context.Context, id string) {
	if err := d.quotes.Delete(ctx, id); err != nil {
		d.logger.WarnWithContext(ctx, "Failed to delete quote", map[string]interface{}{
			"operation": "quote_delete",
			"quote_id":  id,
			"error":     err.Error(),
		})
	}
}

func (d *Dispatcher) publish(ctx context.Context, t EventType, o *Order) {
	if err := d.publisher.Publish(ctx, Event{Type: t, Order: *o.Clone(), At: d.now()}); err != nil {
		d.logger.ErrorWithContext(ctx, "Failed to publish order event", map[string]interface{}{
			"operation": "order_publish",
			"event":     string(t),
			"order_id":  o.ID,
			"error":     err.Error(),
		})
	}
}

func (d *Dispatcher) countOrder(result string) {
	d.telemetry.RecordMetric("sushichat_orders_total", 1, map[string]string{"result": result})
}
