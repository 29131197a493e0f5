package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itsneelabh/sushichat/core"
)

// DefaultOpenAIBaseURL is used when no base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint with
// function tools.
type OpenAIClient struct {
	*BaseClient
	apiKey  string
	baseURL string
}

// NewOpenAIClient builds a client from config. A missing key is reported
// on the first Complete call.
func NewOpenAIClient(cfg core.AIConfig, logger core.Logger, telemetry core.Telemetry) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := NewBaseClient(timeout, core.ComponentLogger(logger, "ai"), telemetry)
	base.DefaultModel = cfg.Model
	if cfg.Temperature > 0 {
		base.DefaultTemperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		base.DefaultMaxTokens = cfg.MaxTokens
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{BaseClient: base, apiKey: cfg.APIKey, baseURL: baseURL}
}

type openAIMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

func buildOpenAIRequest(req *CompletionRequest) openAIRequest {
	body := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, openAITool{Type: "function", Function: t})
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	return body
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	ctx, span := c.Telemetry.StartSpan(ctx, "ai.complete")
	defer span.End()
	span.SetAttribute("ai.provider", "openai")

	if c.apiKey == "" {
		c.Logger.ErrorWithContext(ctx, "OpenAI request failed - API key not configured", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "openai",
			"error":     "api_key_missing",
		})
		span.RecordError(ErrMissingAPIKey)
		return nil, ErrMissingAPIKey
	}

	req = c.ApplyDefaults(req)
	span.SetAttribute("ai.model", req.Model)
	span.SetAttribute("ai.messages", len(req.Messages))
	c.LogRequest(ctx, "openai", req)
	start := time.Now()

	payload, err := json.Marshal(buildOpenAIRequest(req))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.Logger.ErrorWithContext(ctx, "OpenAI request failed - send error", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "openai",
			"error":     err.Error(),
			"phase":     "send_request",
		})
		span.RecordError(err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.ErrorWithContext(ctx, "OpenAI request failed - API error", map[string]interface{}{
			"operation":   "ai_request_error",
			"provider":    "openai",
			"status_code": resp.StatusCode,
			"phase":       "api_response",
		})
		apiErr := c.HandleError(resp.StatusCode, body, "OpenAI")
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return nil, apiErr
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.Logger.ErrorWithContext(ctx, "OpenAI request failed - parse response error", map[string]interface{}{
			"operation": "ai_request_error",
			"provider":  "openai",
			"error":     err.Error(),
			"phase":     "response_parse",
		})
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		emptyErr := fmt.Errorf("no response from OpenAI: %w", core.ErrRequestFailed)
		span.RecordError(emptyErr)
		return nil, emptyErr
	}

	msg := parsed.Choices[0].Message
	result := &Completion{Content: msg.Content, Model: parsed.Model, Usage: parsed.Usage}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	span.SetAttribute("ai.total_tokens", result.Usage.TotalTokens)
	span.SetAttribute("ai.tool_calls", len(result.ToolCalls))
	c.LogResponse(ctx, "openai", result, time.Since(start))
	return result, nil
}
