package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/order"
	"github.com/itsneelabh/sushichat/telemetry"
)

const maxBodyBytes = 1 << 20

// HealthCheckFunc probes a dependency and may return details for /health.
type HealthCheckFunc func(ctx context.Context) (interface{}, error)

type healthCheck struct {
	name string
	fn   HealthCheckFunc
}

// Handler serves the chat endpoint, the REST order API, health and the UI.
type Handler struct {
	service     *Service
	router      *Router
	logger      core.Logger
	cors        core.CORSConfig
	devMode     bool
	serviceName string
	checks      []healthCheck
	now         func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger used by handlers and request logging.
func WithHandlerLogger(l core.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCORS enables CORS handling.
func WithCORS(cfg core.CORSConfig) HandlerOption {
	return func(h *Handler) { h.cors = cfg }
}

// WithDevelopment logs every request.
func WithDevelopment(enabled bool) HandlerOption {
	return func(h *Handler) { h.devMode = enabled }
}

// WithServiceName names the HTTP server spans.
func WithServiceName(name string) HandlerOption {
	return func(h *Handler) { h.serviceName = name }
}

// WithHealthCheck adds a dependency probe to /health.
func WithHealthCheck(name string, fn HealthCheckFunc) HandlerOption {
	return func(h *Handler) { h.checks = append(h.checks, healthCheck{name: name, fn: fn}) }
}

// NewHandler creates the HTTP layer over a chat service.
func NewHandler(service *Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:     service,
		router:      service.router,
		logger:      &core.NoOpLogger{},
		serviceName: "sushichat",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the chi router with the middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		core.RecoveryMiddleware(h.logger),
		core.RequestIDMiddleware,
		core.CORSMiddleware(h.cors),
		core.LoggingMiddleware(h.logger, h.devMode),
		telemetry.TracingMiddleware(h.serviceName, "/health"),
	)

	r.Get("/", h.serveUI)
	r.Get("/health", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/chat", h.handleChatStatus)
		r.Post("/chat", h.handleChat)
		r.Get("/catalog", h.handleCatalog)
		r.Get("/store", h.handleStore)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.handleListOrders)
			r.Post("/", h.handleCreateOrder)
			r.Get("/{id}", h.handleGetOrder)
			r.Patch("/{id}", h.handleChangeOrder)
			r.Delete("/{id}", h.handleCancelOrder)
		})
	})
	return r
}

type chatError struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatError{Response: msgProcessingError, Error: "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.service.Respond(r.Context(), req)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, chatError{Response: msgProcessingError, Error: err.Error()})
		return
	case err != nil:
		h.logger.ErrorWithContext(r.Context(), "Chat request failed", map[string]interface{}{
			"operation":  "chat_request",
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, chatError{Response: userMessage(err), Error: err.Error()})
		return
	}
	writeJSON(w, resp.Status, resp)
}

type catalogItemJSON struct {
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Description  string   `json:"description"`
	Contents     []string `json:"contents"`
	Availability string   `json:"availability"`
	Stock        *int     `json:"stock,omitempty"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	d := h.router.Dispatcher()
	all := d.Catalog().All()
	items := make([]catalogItemJSON, 0, len(all))
	for _, it := range all {
		item := catalogItemJSON{
			Name:         it.Name,
			Price:        it.PriceString(),
			Description:  it.Description,
			Contents:     it.Contents,
			Availability: string(it.Availability),
		}
		left, tracked, err := d.Stock(r.Context(), it.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stock", err)
			return
		}
		if tracked {
			item.Stock = &left
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
}

type dayHoursJSON struct {
	Label string `json:"label"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

func toDayHoursJSON(d catalog.DayHours) dayHoursJSON {
	return dayHoursJSON{Label: d.Label, Open: d.Open.String(), Close: d.Close.String()}
}

func (h *Handler) handleStore(w http.ResponseWriter, r *http.Request) {
	s := h.router.Store()
	hours := s.GetHours()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     s.Name,
		"address":  s.GetAddress(),
		"phone":    s.GetPhone(),
		"email":    s.Email,
		"timezone": s.Timezone,
		"hours": map[string]dayHoursJSON{
			"weekdays": toDayHoursJSON(hours.Weekdays),
			"weekends": toDayHoursJSON(hours.Weekends),
		},
		"is_open": s.IsOpenNow(h.now()),
	})
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req, err := order.Normalize(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order request", err)
		return
	}
	h.writeOutcome(w, r)(h.router.Dispatcher().Dispatch(r.Context(), req))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.router.Dispatcher().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "count": len(orders)})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.router.Dispatcher().Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found", nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleChangeOrder(w http.ResponseWriter, r *http.Request) {
	var req order.ChangeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.OrderID = chi.URLParam(r, "id")
	h.writeOutcome(w, r)(h.router.Dispatcher().Change(r.Context(), req))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.writeOutcome(w, r)(h.router.Dispatcher().Cancel(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request) func(*order.Outcome, error) {
	return func(o *order.Outcome, err error) {
		if err != nil {
			h.logger.ErrorWithContext(r.Context(), "Order request failed", map[string]interface{}{
				"operation": "order_request",
				"path":      r.URL.Path,
				"error":     err.Error(),
			})
			writeError(w, http.StatusInternalServerError, userMessage(err), err)
			return
		}
		writeJSON(w, o.Status, o)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().Unix(),
		"service":   h.serviceName,
	}
	for _, c := range h.checks {
		detail, err := c.fn(ctx)
		if err != nil {
			status = http.StatusServiceUnavailable
			health["status"] = "degraded"
			health[c.name] = map[string]interface{}{"status": "unavailable", "error": err.Error()}
			h.logger.WarnWithContext(ctx, "Health check failed", map[string]interface{}{
				"check": c.name,
				"error": err.Error(),
			})
			continue
		}
		entry := map[string]interface{}{"status": "healthy"}
		if detail != nil {
			entry["detail"] = detail
		}
		health[c.name] = entry
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	writeJSON(w, statusCode, response)
}
