package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/itsneelabh/sushichat/ai"
	"github.com/itsneelabh/sushichat/core"
)

// ErrEmptyMessage is returned when a request carries neither message nor messages.
var ErrEmptyMessage = errors.New("message or messages is required")

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string       `json:"message,omitempty"`
	Messages  []ai.Message `json:"messages,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
}

// ChatResponse is the answer to a chat turn. Status is the HTTP status the
// endpoint should use.
type ChatResponse struct {
	Response string `json:"response"`
	Tool     string `json:"tool,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	QuoteID  string `json:"quote_id,omitempty"`
	Status   int    `json:"-"`
}

// Service runs one chat turn: model call, tool routing and session history.
type Service struct {
	client    ai.Client
	router    *Router
	sessions  *SessionStore
	logger    core.Logger
	telemetry core.Telemetry
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessions enables server-side history for requests with a session id.
func WithSessions(s *SessionStore) ServiceOption {
	return func(svc *Service) { svc.sessions = s }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l core.Logger) ServiceOption {
	return func(svc *Service) { svc.logger = core.ComponentLogger(l, "chat") }
}

// WithServiceTelemetry sets spans.
func WithServiceTelemetry(t core.Telemetry) ServiceOption {
	return func(svc *Service) {
		if t != nil {
			svc.telemetry = t
		}
	}
}

// WithServiceClock overrides time.Now for the system prompt.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// NewService creates a chat service.
func NewService(client ai.Client, router *Router, opts ...ServiceOption) *Service {
	s := &Service{
		client:    client,
		router:    router,
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SystemPrompt is the instruction sent before every conversation.
func (s *Service) SystemPrompt() string {
	store := s.router.Store()
	now := s.now().In(store.Location())
	name := store.Name
	if name == "" {
		name = "nuestro local de sushi"
	}
	return fmt.Sprintf(`Sos el asistente virtual de %s, un local de sushi ubicado en %s.
Respondé siempre en español rioplatense, usando voseo, de forma breve y amable.
Hoy es %s y son las %s.
Usá las herramientas para consultar el menú, la disponibilidad, los horarios, la dirección y el teléfono, y para crear, modificar o cancelar pedidos.
Antes de registrar un pedido mostrá el resumen con create_order sin confirmar. Cuando el cliente acepte, llamá a create_order con confirm "sí" y el quote_id del resumen.
No inventes productos, precios ni horarios.`,
		name, store.GetAddress(), spanishDate(now), now.Format("15:04"))
}

func (s *Service) buildMessages(history []ai.Message, req ChatRequest) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+len(req.Messages)+2)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: s.SystemPrompt()})
	msgs = append(msgs, history...)
	for _, m := range req.Messages {
		if m.Role != ai.RoleUser && m.Role != ai.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: msg})
	}
	return msgs
}

func hasUserTurn(req ChatRequest) bool {
	if strings.TrimSpace(req.Message) != "" {
		return true
	}
	for _, m := range req.Messages {
		if m.Role == ai.RoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

// Respond answers one chat turn. Model failures and internal tool failures
// are returned as errors.
func (s *Service) Respond(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !hasUserTurn(req) {
		return nil, ErrEmptyMessage
	}
	ctx, span := s.telemetry.StartSpan(ctx, "chat.Respond")
	defer span.End()

	var history []ai.Message
	if s.sessions != nil && req.SessionID != "" {
		h, err := s.sessions.History(ctx, req.SessionID)
		if err != nil {
			s.logger.WarnWithContext(ctx, "Session history unavailable", map[string]interface{}{
				"operation":  "session_load",
				"session_id": req.SessionID,
				"error":      err.Error(),
			})
		}
		history = h
	}

	completion, err := s.client.Complete(ctx, &ai.CompletionRequest{
		Messages: s.buildMessages(history, req),
		Tools:    Definitions(),
	})
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorWithContext(ctx, "Model call failed", map[string]interface{}{
			"operation": "chat_complete",
			"error":     err.Error(),
		})
		return nil, &core.ServiceError{Op: "chat.Respond", Kind: "ai", Message: msgProcessingError, Err: err}
	}

	resp := &ChatResponse{Status: http.StatusOK}
	if call, ok := completion.FirstToolCall(); ok {
		reply := s.router.Dispatch(ctx, call.Name, json.RawMessage(call.Arguments))
		if reply.Err != nil {
			span.RecordError(reply.Err)
			return nil, &core.ServiceError{Op: "chat.Respond", Kind: "tool", ID: call.Name, Message: reply.Text, Err: reply.Err}
		}
		resp.Response = reply.Text
		resp.Tool = CanonicalTool(call.Name)
		resp.Status = reply.Status
		if resp.Status == http.StatusCreated {
			resp.Status = http.StatusOK
		}
		if reply.Order != nil {
			resp.OrderID = reply.Order.ID
		}
		if reply.Quote != nil {
			resp.QuoteID = reply.Quote.ID
		}
	} else {
		resp.Response = completion.Content
		if strings.TrimSpace(resp.Response) == "" {
			resp.Response = msgUnknownTool
		}
	}
	span.SetAttribute("chat.status", resp.Status)

	if s.sessions != nil && req.SessionID != "" {
		turn := []ai.Message{}
		if msg := strings.TrimSpace(req.Message); msg != "" {
			turn = append(turn, ai.Message{Role: ai.RoleUser, Content: msg})
		} else if last, ok := lastUserMessage(req.Messages); ok {
			turn = append(turn, last)
		}
		turn = append(turn, ai.Message{Role: ai.RoleAssistant, Content: resp.Response})
		if err := s.sessions.Append(ctx, req.SessionID, turn...); err != nil {
			s.logger.WarnWithContext(ctx, "Failed to store session history", map[string]interface{}{
				"operation":  "session_store",
				"session_id": req.SessionID,
				"error":      err.Error(),
			})
		}
	}
	return resp, nil
}

func lastUserMessage(messages []ai.Message) (ai.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return messages[i], true
		}
	}
	return ai.Message{}, false
}
