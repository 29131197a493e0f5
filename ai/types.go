// Package ai talks to chat-completion models that can answer with text or
// with a single function (tool) call.
package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrMissingAPIKey is returned by OpenAIClient when no key is configured.
var ErrMissingAPIKey = errors.New("AI API key not configured")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a function the model may call. Parameters is a
// JSON schema object.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// CompletionRequest asks the model for the next assistant turn.
// Zero values fall back to the client defaults.
type CompletionRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Model       string
	Temperature float32
	MaxTokens   int
}

// ToolCall is a function invocation chosen by the model. Arguments is the
// raw JSON string the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// TokenUsage reports token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the model answer: free text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
	Model     string
	Usage     TokenUsage
}

// FirstToolCall returns the first tool call, if any.
func (c *Completion) FirstToolCall() (ToolCall, bool) {
	if c == nil || len(c.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return c.ToolCalls[0], true
}

// Client produces completions.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
