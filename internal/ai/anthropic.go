package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicBaseURL is the default Messages API endpoint root.
const AnthropicBaseURL = "https://api.anthropic.com/v1"

const anthropicDefaultMaxTokens = 4096

// AnthropicRuntime talks to the Anthropic Messages API.
type AnthropicRuntime struct {
	client  *anthropic.Client
	baseURL string
	apiKey  string
	retry   Retrier
	logger  *zap.Logger
}

func NewAnthropicRuntime(cfg RuntimeConfig) *AnthropicRuntime {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = AnthropicBaseURL
	}
	logger := cfg.logger().Named(ProviderAnthropic)
	return &AnthropicRuntime{
		client: anthropic.NewClient(cfg.APIKey,
			anthropic.WithBaseURL(base),
			anthropic.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout, nil))),
		baseURL: base,
		apiKey:  cfg.APIKey,
		retry:   cfg.retrier(logger),
		logger:  logger,
	}
}

func (r *AnthropicRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if r.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderAnthropic, ErrMissingAPIKey)
	}
	system, convo := splitSystem(req.Messages)
	msgs := make([]anthropic.Message, 0, len(convo))
	for _, m := range convo {
		text := m.Content
		role := anthropic.RoleUser
		if m.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}
		msgs = append(msgs, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
		})
	}
	mreq := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		System:    system,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if mreq.MaxTokens <= 0 {
		mreq.MaxTokens = anthropicDefaultMaxTokens
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		mreq.Temperature = &t
	}

	var out *GenerateResponse
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		mctx, meta := withMeta(ctx)
		resp, err := r.client.CreateMessages(mctx, mreq)
		if err != nil {
			return r.classify(ctx, err, meta)
		}
		text := firstText(resp)
		if text == "" {
			return fmt.Errorf("%s: no text content in response", ProviderAnthropic)
		}
		r.logger.Debug("completion",
			zap.String("model", string(resp.Model)),
			zap.String("request_id", meta.RequestID),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens))
		out = &GenerateResponse{
			ID:      resp.ID,
			Model:   string(resp.Model),
			Content: text,
			Usage: Usage{
				PromptTokens:     resp.Usage.InputTokens,
				CompletionTokens: resp.Usage.OutputTokens,
				TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func firstText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

// anthropicStatus maps Messages API error types onto HTTP statuses so they
// classify like the other providers.
var anthropicStatus = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"not_found_error":       http.StatusNotFound,
	"request_too_large":     http.StatusRequestEntityTooLarge,
	"rate_limit_error":      http.StatusTooManyRequests,
	"api_error":             http.StatusInternalServerError,
	"overloaded_error":      529,
}

func (r *AnthropicRuntime) classify(ctx context.Context, err error, meta *responseMeta) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		typ := string(apiErr.Type)
		code := typ
		if typ == "not_found_error" {
			code = "model_not_found"
		}
		status, ok := anthropicStatus[typ]
		if !ok {
			status = http.StatusInternalServerError
		}
		return classify(&APIError{Provider: ProviderAnthropic, StatusCode: status, Code: code, Message: apiErr.Message}, meta.RetryAfter)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return classify(&APIError{Provider: ProviderAnthropic, StatusCode: reqErr.StatusCode, Message: msg}, meta.RetryAfter)
	}
	return transportError(ctx, err, r.baseURL, ProviderAnthropic)
}
