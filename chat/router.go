package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/order"
)

// Reply is the routed answer to a tool call. Status follows HTTP
// semantics; Err is set only for internal failures.
type Reply struct {
	Status int          `json:"-"`
	Text   string       `json:"response"`
	Order  *order.Order `json:"order,omitempty"`
	Quote  *order.Quote `json:"quote,omitempty"`
	Err    error        `json:"-"`
}

// Router maps tool calls onto the catalog, store info and order dispatcher.
type Router struct {
	dispatcher *order.Dispatcher
	store      catalog.StoreInfo
	logger     core.Logger
	telemetry  core.Telemetry
	now        func() time.Time
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger.
func WithRouterLogger(l core.Logger) RouterOption {
	return func(r *Router) { r.logger = core.ComponentLogger(l, "router") }
}

// WithRouterTelemetry sets spans and metrics.
func WithRouterTelemetry(t core.Telemetry) RouterOption {
	return func(r *Router) {
		if t != nil {
			r.telemetry = t
		}
	}
}

// WithRouterClock overrides time.Now, used for the open/closed status.
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router.
func NewRouter(d *order.Dispatcher, store catalog.StoreInfo, opts ...RouterOption) *Router {
	r := &Router{
		dispatcher: d,
		store:      store,
		logger:     &core.NoOpLogger{},
		telemetry:  &core.NoOpTelemetry{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store info the router answers with.
func (r *Router) Store() catalog.StoreInfo { return r.store }

// Dispatcher returns the order dispatcher.
func (r *Router) Dispatcher() *order.Dispatcher { return r.dispatcher }

// Dispatch runs the named tool. Unknown tools get a fixed fallback with
// status 200.
func (r *Router) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) Reply {
	tool := CanonicalTool(name)
	ctx, span := r.telemetry.StartSpan(ctx, "chat.tool")
	defer span.End()
	span.SetAttribute("tool.name", tool)

	start := time.Now()
	reply := r.route(ctx, tool, rawArgs)
	if reply.Err != nil {
		span.RecordError(reply.Err)
	}
	span.SetAttribute("tool.status", reply.Status)

	fields := map[string]interface{}{
		"operation":   "tool_dispatch",
		"tool":        tool,
		"status":      reply.Status,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if tool != name {
		fields["requested_tool"] = name
	}
	if reply.Err != nil {
		fields["error"] = reply.Err.Error()
		r.logger.ErrorWithContext(ctx, "Tool call failed", fields)
	} else {
		r.logger.InfoWithContext(ctx, "Tool call handled", fields)
	}
	r.telemetry.RecordMetric("sushichat_tool_calls_total", 1, map[string]string{
		"tool":   tool,
		"status": strconv.Itoa(reply.Status),
	})
	return reply
}

func (r *Router) route(ctx context.Context, tool string, raw json.RawMessage) Reply {
	switch tool {
	case ToolQueryBoxes:
		return Reply{Status: http.StatusOK, Text: r.dispatcher.Listing(ctx)}
	case ToolGetStoreInfo:
		return Reply{Status: http.StatusOK, Text: storeInfoText(r.store, r.now())}
	case ToolGetLocation:
		return Reply{Status: http.StatusOK, Text: locationText(r.store)}
	case ToolGetPhone:
		return Reply{Status: http.StatusOK, Text: phoneText(r.store)}
	case ToolCheckAvailability:
		return r.availability(ctx, raw)
	case ToolCreateOrder:
		return r.createOrder(ctx, raw)
	case ToolChangeOrder:
		return r.changeOrder(ctx, raw)
	case ToolCancelOrder:
		return r.cancelOrder(ctx, raw)
	}
	return Reply{Status: http.StatusOK, Text: msgUnknownTool}
}

func fromOutcome(o *order.Outcome, err error) Reply {
	if err != nil {
		return Reply{Status: http.StatusInternalServerError, Text: userMessage(err), Err: err}
	}
	return Reply{Status: o.Status, Text: o.Message, Order: o.Order, Quote: o.Quote}
}

// userMessage returns the customer-facing text carried by a ServiceError,
// or the generic processing error.
func userMessage(err error) string {
	var se *core.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return msgProcessingError
}

func (r *Router) malformed(ctx context.Context, err error) Reply {
	r.logger.WarnWithContext(ctx, "Malformed tool arguments", map[string]interface{}{
		"operation": "tool_arguments",
		"error":     err.Error(),
	})
	return Reply{Status: http.StatusBadRequest, Text: msgMalformedArgs}
}

func (r *Router) availability(ctx context.Context, raw json.RawMessage) Reply {
	args, err := parseArguments(raw)
	if err != nil {
		return r.malformed(ctx, err)
	}
	name := args.str("product_name", "productName", "box_name", "boxName", "item_name", "name", "product", "box")
	if name == "" {
		return Reply{Status: http.StatusOK, Text: r.dispatcher.Listing(ctx) + "\n\n" + msgMissingProduct}
	}
	return fromOutcome(r.dispatcher.Availability(ctx, name))
}

func (r *Router) createOrder(ctx context.Context, raw json.RawMessage) Reply {
	req, err := order.Normalize(unwrapArguments(raw))
	if err != nil {
		return r.malformed(ctx, err)
	}
	return fromOutcome(r.dispatcher.Dispatch(ctx, req))
}

func (r *Router) changeOrder(ctx context.Context, raw json.RawMessage) Reply {
	args, err := parseArguments(raw)
	if err != nil {
		return r.malformed(ctx, err)
	}
	qty, _ := args.integer("new_quantity", "newQuantity", "quantity", "cantidad")
	return fromOutcome(r.dispatcher.Change(ctx, order.ChangeRequest{
		OrderID:     args.str("order_id", "orderId", "id"),
		ItemName:    args.str("item_name", "itemName", "product_name", "productName", "box_name", "boxName"),
		NewQuantity: qty,
	}))
}

func (r *Router) cancelOrder(ctx context.Context, raw json.RawMessage) Reply {
	args, err := parseArguments(raw)
	if err != nil {
		return r.malformed(ctx, err)
	}
	return fromOutcome(r.dispatcher.Cancel(ctx, args.str("order_id", "orderId", "id")))
}

type arguments map[string]interface{}

// unwrapArguments turns a JSON string holding an object into the object;
// models occasionally encode arguments twice.
func unwrapArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err == nil && strings.HasPrefix(strings.TrimSpace(inner), "{") {
			return json.RawMessage(inner)
		}
	}
	return raw
}

func parseArguments(raw json.RawMessage) (arguments, error) {
	trimmed := bytes.TrimSpace(unwrapArguments(raw))
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return arguments{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var args arguments
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrMalformedArguments, err)
	}
	return args, nil
}

func (a arguments) str(keys ...string) string {
	for _, k := range keys {
		switch v := a[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func (a arguments) integer(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := a[k].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
			if f, err := v.Float64(); err == nil && f == float64(int(f)) {
				return int(f), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
