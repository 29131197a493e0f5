package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/itsneelabh/sushichat/core"
)

// APIError is a non-2xx answer from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap lets callers test for core.ErrRequestFailed.
func (e *APIError) Unwrap() error { return core.ErrRequestFailed }

// BaseClient holds the HTTP client, logger and defaults shared by providers.
// Requests are sent once; failures surface to the caller.
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	DefaultModel       string
	DefaultTemperature float32
	DefaultMaxTokens   int
}

// NewBaseClient creates a base client with the given HTTP timeout.
func NewBaseClient(timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &BaseClient{
		HTTPClient:         &http.Client{Timeout: timeout},
		Logger:             logger,
		Telemetry:          telemetry,
		DefaultTemperature: 0.3,
		DefaultMaxTokens:   800,
	}
}

// ApplyDefaults fills unset request fields.
func (b *BaseClient) ApplyDefaults(req *CompletionRequest) *CompletionRequest {
	if req == nil {
		req = &CompletionRequest{}
	}
	if req.Model == "" {
		req.Model = b.DefaultModel
	}
	if req.Temperature == 0 {
		req.Temperature = b.DefaultTemperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = b.DefaultMaxTokens
	}
	return req
}

// HandleError maps provider status codes to an *APIError.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	var msg string
	switch statusCode {
	case http.StatusUnauthorized:
		msg = "invalid or missing API key"
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded"
	case http.StatusBadRequest:
		msg = "invalid request - " + string(body)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		msg = "service temporarily unavailable"
	default:
		msg = string(body)
	}
	return &APIError{Provider: provider, StatusCode: statusCode, Message: msg}
}

// LogRequest logs an outgoing completion request.
func (b *BaseClient) LogRequest(ctx context.Context, provider string, req *CompletionRequest) {
	b.Logger.InfoWithContext(ctx, "AI request initiated", map[string]interface{}{
		"operation":   "ai_request",
		"provider":    provider,
		"model":       req.Model,
		"messages":    len(req.Messages),
		"tools":       len(req.Tools),
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	})
}

// LogResponse logs a completion and records model latency.
func (b *BaseClient) LogResponse(ctx context.Context, provider string, c *Completion, duration time.Duration) {
	fields := map[string]interface{}{
		"operation":         "ai_response",
		"provider":          provider,
		"model":             c.Model,
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
		"total_tokens":      c.Usage.TotalTokens,
		"tool_calls":        len(c.ToolCalls),
		"duration_ms":       duration.Milliseconds(),
	}
	if call, ok := c.FirstToolCall(); ok {
		fields["tool"] = call.Name
	}
	b.Logger.InfoWithContext(ctx, "AI response received", fields)
	b.Telemetry.RecordMetric("sushichat_model_latency_seconds", duration.Seconds(), map[string]string{
		"provider": provider,
	})
}
