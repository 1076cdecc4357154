package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Default endpoints for the OpenAI-compatible providers.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"
)

// OpenAIRuntime talks to any OpenAI-compatible chat completions endpoint:
// OpenRouter, OpenAI, or a local Ollama server.
type OpenAIRuntime struct {
	client     *openai.Client
	provider   string
	baseURL    string
	apiKey     string
	requireKey bool
	retry      Retrier
	logger     *zap.Logger
}

// NewOpenAIRuntime builds a runtime for provider. cfg.BaseURL overrides
// the provider's default endpoint.
func NewOpenAIRuntime(provider string, cfg RuntimeConfig) *OpenAIRuntime {
	provider = NormalizeProvider(provider)
	base := cfg.BaseURL
	var headers http.Header
	requireKey := true
	switch provider {
	case ProviderOpenRouter:
		if base == "" {
			base = OpenRouterBaseURL
		}
		headers = http.Header{}
		headers.Set("HTTP-Referer", "https://github.com/KaramelBytes/vizloom-cli")
		headers.Set("X-Title", "vizloom")
	case ProviderOllama:
		if base == "" {
			host := cfg.Host
			if host == "" {
				host = DefaultOllamaHost
			}
			base = strings.TrimSuffix(host, "/") + "/v1"
		}
		requireKey = false
	default:
		if base == "" {
			base = OpenAIBaseURL
		}
	}
	base = strings.TrimSuffix(base, "/")

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = base
	oc.HTTPClient = newHTTPClient(cfg.HTTPTimeout, headers)

	logger := cfg.logger().Named(provider)
	return &OpenAIRuntime{
		client:     openai.NewClientWithConfig(oc),
		provider:   provider,
		baseURL:    base,
		apiKey:     cfg.APIKey,
		requireKey: requireKey,
		retry:      cfg.retrier(logger),
		logger:     logger,
	}
}

func (r *OpenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if r.requireKey && r.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", r.provider, ErrMissingAPIKey)
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	var out *GenerateResponse
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		mctx, meta := withMeta(ctx)
		resp, err := r.client.CreateChatCompletion(mctx, creq)
		if err != nil {
			return r.classify(ctx, err, meta)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%s: no choices in response", r.provider)
		}
		r.logger.Debug("completion",
			zap.String("model", resp.Model),
			zap.String("request_id", meta.RequestID),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
		out = &GenerateResponse{
			ID:      resp.ID,
			Model:   resp.Model,
			Content: resp.Choices[0].Message.Content,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OpenAIRuntime) classify(ctx context.Context, err error, meta *responseMeta) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		return classify(&APIError{
			Provider:   r.provider,
			StatusCode: apiErr.HTTPStatusCode,
			Code:       code,
			Message:    apiErr.Message,
		}, meta.RetryAfter)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return classify(&APIError{Provider: r.provider, StatusCode: reqErr.HTTPStatusCode, Message: msg}, meta.RetryAfter)
	}
	return transportError(ctx, err, r.baseURL, r.provider)
}

// transportError wraps failures that never produced an HTTP response.
// Cancellation of ctx passes through unchanged.
func transportError(ctx context.Context, err error, host, provider string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &UnreachableError{Host: host, Err: err}
	}
	return fmt.Errorf("%s request: %w", provider, err)
}
