package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/itsneelabh/sushichat/internal/textmatch"
)

// MockGreeting is the free-text answer when no intent is recognised.
const MockGreeting = "¡Hola! Soy el asistente del local. Podés pedirme el menú, nuestros horarios o armar un pedido."

var (
	quoteIDPattern = regexp.MustCompile(`\bq_[0-9a-f]{8}\b`)
	orderIDPattern = regexp.MustCompile(`\bord_[0-9a-f]{8}\b`)
	numberPattern  = regexp.MustCompile(`\b\d{1,3}\b`)
)

// MockClient answers without network access. Scripted completions are
// returned in order; once exhausted, keyword heuristics pick a tool from
// the last user message.
type MockClient struct {
	mu     sync.Mutex
	items  *textmatch.Index
	script []*Completion
	err    error
	calls  []CompletionRequest
}

// NewMockClient creates a heuristic client that recognises itemNames.
func NewMockClient(itemNames []string) *MockClient {
	return &MockClient{items: textmatch.NewIndex(itemNames)}
}

// Script queues completions returned before heuristics kick in.
func (m *MockClient) Script(completions ...*Completion) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, completions...)
	return m
}

// FailWith makes every call return err.
func (m *MockClient) FailWith(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Calls returns a copy of the requests received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		req = &CompletionRequest{}
	}

	m.mu.Lock()
	m.calls = append(m.calls, *req)
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return next, nil
	}
	m.mu.Unlock()

	return m.guess(req.Messages), nil
}

func toolCompletion(name string, args map[string]interface{}) *Completion {
	raw, _ := json.Marshal(args)
	return &Completion{
		Model:     "mock",
		ToolCalls: []ToolCall{{ID: "call_mock", Name: name, Arguments: string(raw)}},
	}
}

func lastContent(messages []Message, role string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return messages[i].Content
		}
	}
	return ""
}

func lastMatch(messages []Message, re *regexp.Regexp) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if id := re.FindString(messages[i].Content); id != "" {
			return id
		}
	}
	return ""
}

func hasWord(words []string, prefixes ...string) bool {
	for _, w := range words {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}

func firstNumber(text string) int {
	if m := numberPattern.FindString(text); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

var affirmatives = map[string]bool{
	"si": true, "dale": true, "confirmo": true, "yes": true, "ok": true, "si, confirmo": true, "si confirmo": true,
}

func (m *MockClient) guess(messages []Message) *Completion {
	text := lastContent(messages, RoleUser)
	folded := textmatch.Fold(text)
	words := textmatch.Keywords(text)
	item, hasItem := m.items.Best(text)

	switch {
	case hasWord(words, "cancel"):
		return toolCompletion("cancel_order", map[string]interface{}{
			"order_id": lastMatch(messages, orderIDPattern),
		})
	case hasWord(words, "cambi", "modific"):
		args := map[string]interface{}{
			"order_id":     lastMatch(messages, orderIDPattern),
			"new_quantity": firstNumber(orderIDPattern.ReplaceAllString(text, "")),
		}
		if hasItem {
			args["item_name"] = item
		}
		return toolCompletion("change_order", args)
	case affirmatives[strings.Trim(folded, "!.¡ ")]:
		if quote := quoteIDPattern.FindString(lastContent(messages, RoleAssistant)); quote != "" {
			return toolCompletion("create_order", map[string]interface{}{"quote_id": quote, "confirm": "sí"})
		}
	case hasWord(words, "horario", "hora", "abiert", "abren", "cierran", "info"):
		return toolCompletion("get_store_info", map[string]interface{}{})
	case strings.Contains(folded, "donde") || hasWord(words, "direccion", "ubica"):
		return toolCompletion("get_location", map[string]interface{}{})
	case hasWord(words, "telefono", "llamar", "whatsapp"):
		return toolCompletion("get_phone", map[string]interface{}{})
	case hasItem && hasWord(words, "disponib", "stock", "quedan", "hay"):
		return toolCompletion("check_availability", map[string]interface{}{"product_name": item})
	case hasItem:
		qty := firstNumber(text)
		if qty == 0 {
			qty = 1
		}
		return toolCompletion("create_order", map[string]interface{}{
			"items": []map[string]interface{}{{"box_name": item, "quantity": qty}},
		})
	case hasWord(words, "pedi", "pedido", "ordenar", "compr"):
		return toolCompletion("create_order", map[string]interface{}{})
	case hasWord(words, "menu", "carta", "boxes", "productos", "opciones"):
		return toolCompletion("query_boxes", map[string]interface{}{})
	}
	return &Completion{Model: "mock", Content: MockGreeting}
}
