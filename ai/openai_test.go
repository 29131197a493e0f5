package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/core"
)

var queryBoxesTool = ToolDefinition{
	Name:        "query_boxes",
	Description: "Lista los boxes disponibles",
	Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIClient(core.AIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, nil, nil)
}

func TestOpenAIClientSendsToolsAndParsesToolCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, "auto", body["tool_choice"])
		tools := body["tools"].([]interface{})
		require.Len(t, tools, 1)
		tool := tools[0].(map[string]interface{})
		assert.Equal(t, "function", tool["type"])
		assert.Equal(t, "query_boxes", tool["function"].(map[string]interface{})["name"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "query_boxes", "arguments": "{}"}}
			]}, "finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 7, "total_tokens": 57}
		}`))
	})

	got, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "Sos un asistente."},
			{Role: RoleUser, Content: "¿Qué boxes tienen?"},
		},
		Tools: []ToolDefinition{queryBoxesTool},
	})
	require.NoError(t, err)

	call, ok := got.FirstToolCall()
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "query_boxes", call.Name)
	assert.Equal(t, "{}", call.Arguments)
	assert.Empty(t, got.Content)
	assert.Equal(t, 57, got.Usage.TotalTokens)
}

func TestOpenAIClientTextAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasTools := body["tools"]
		assert.False(t, hasTools)
		_, hasChoice := body["tool_choice"]
		assert.False(t, hasChoice)
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"¡Hola!"}}]}`))
	})

	got, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hola"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", got.Content)
	_, ok := got.FirstToolCall()
	assert.False(t, ok)
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{}}`, wantStatus: http.StatusUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantStatus: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantStatus: http.StatusInternalServerError},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), &CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "hola"}},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrRequestFailed))
			assert.Equal(t, 1, calls, "requests are never retried")

			if tt.wantStatus != 0 {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			}
		})
	}
}

func TestOpenAIClientInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := client.Complete(context.Background(), &CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestOpenAIClientMissingKey(t *testing.T) {
	client := NewOpenAIClient(core.AIConfig{Model: "gpt-4o-mini"}, nil, nil)
	_, err := client.Complete(context.Background(), &CompletionRequest{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIClientHonoursContext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after newTestClient so it runs before server.Close.
	t.Cleanup(func() { close(release) })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, &CompletionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApplyDefaults(t *testing.T) {
	base := NewBaseClient(time.Second, nil, nil)
	base.DefaultModel = "gpt-4o-mini"

	req := base.ApplyDefaults(nil)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, float32(0.3), req.Temperature)
	assert.Equal(t, 800, req.MaxTokens)

	req = base.ApplyDefaults(&CompletionRequest{Model: "gpt-4o", MaxTokens: 100})
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 100, req.MaxTokens)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(core.AIConfig{Provider: "mock"}, []string{"Box Chica"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = NewClient(core.AIConfig{Provider: "openai", APIKey: "k"}, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewClient(core.AIConfig{Provider: "openai"}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(core.AIConfig{Provider: "llama"}, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}
