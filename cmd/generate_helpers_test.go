package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/codegen"
	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
)

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultProvider: "openrouter", DefaultModel: "cfg-model"}

	assert.Equal(t, "cli-model", selectModel(cfg, ai.ProviderOpenRouter, "cli-model"))
	assert.Equal(t, "cfg-model", selectModel(cfg, ai.ProviderOpenRouter, ""))
	assert.Equal(t, "claude-3-5-haiku-latest", selectModel(cfg, ai.ProviderAnthropic, ""))
	cfg.DefaultModel = ""
	assert.Equal(t, "openai/gpt-4o-mini", selectModel(cfg, ai.ProviderOpenRouter, ""))
	assert.Equal(t, "openai/gpt-4o-mini", selectModel(nil, "mystery", ""))
}

func TestResolveProvider(t *testing.T) {
	assert.Equal(t, ai.ProviderOpenRouter, resolveProvider(nil, ""))
	assert.Equal(t, ai.ProviderOllama, resolveProvider(nil, "LOCAL"))
	assert.Equal(t, ai.ProviderAnthropic, resolveProvider(&cfgpkg.Global{DefaultProvider: "anthropic"}, ""))
	assert.Equal(t, ai.ProviderOpenAI, resolveProvider(&cfgpkg.Global{DefaultProvider: "anthropic"}, "openai"))
}

func TestBuildRuntime(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg := &cfgpkg.Global{HTTPTimeoutSec: 5, RetryMaxAttempts: 1, OllamaHost: "http://127.0.0.1:1"}

	rt, name, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: "openai"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOpenAI, name)
	assert.IsType(t, &ai.OpenAIRuntime{}, rt)

	rt, name, err = buildRuntime(cfg, runtimeOptions{ProviderFlag: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderAnthropic, name)
	assert.IsType(t, &ai.AnthropicRuntime{}, rt)

	_, name, err = buildRuntime(cfg, runtimeOptions{ProviderFlag: "local"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, name)

	_, _, err = buildRuntime(cfg, runtimeOptions{ProviderFlag: "cohere"})
	assert.ErrorContains(t, err, "provider not supported: cohere")
}

func TestPromptBudget(t *testing.T) {
	assert.Equal(t, 12000, promptBudget(12000, "gpt-4o", 4096))
	assert.Equal(t, 8192-1024, promptBudget(12000, "llama3.1", 1024))
	assert.Equal(t, 4096, promptBudget(0, "llama3.1", 9000))
	assert.Equal(t, 500, promptBudget(500, "unknown-model", 4096))
}

func TestEnforceBudget(t *testing.T) {
	assert.NoError(t, enforceBudget(0, 1))
	assert.NoError(t, enforceBudget(0.5, 0))
	assert.NoError(t, enforceBudget(0.5, 1))
	assert.ErrorContains(t, enforceBudget(2, 1), "exceeds budget limit")
}

func TestExplainGenerateError(t *testing.T) {
	api := &ai.APIError{Provider: "openrouter", StatusCode: 500, Message: "x"}
	tests := []struct {
		name     string
		err      error
		provider string
		want     string
	}{
		{"no code", codegen.ErrNoCode, ai.ProviderOpenAI, "held no code"},
		{"missing key", fmt.Errorf("openai: %w", ai.ErrMissingAPIKey), ai.ProviderOpenAI, "OPENAI_API_KEY"},
		{"ollama down", &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, ai.ProviderOllama, "Ollama not reachable at http://127.0.0.1:11434"},
		{"unreachable", &ai.UnreachableError{Host: "h", Err: errors.New("refused")}, ai.ProviderOpenRouter, "endpoint unreachable"},
		{"auth", &ai.AuthError{APIError: api}, ai.ProviderOpenRouter, "authentication failed"},
		{"rate limit", &ai.RateLimitError{APIError: api, RetryAfter: 3 * time.Second}, ai.ProviderOpenRouter, "try again in ~3s"},
		{"local model", &ai.ModelNotFoundError{APIError: api}, ai.ProviderOllama, "ollama pull m"},
		{"model", &ai.ModelNotFoundError{APIError: api}, ai.ProviderOpenRouter, "vizloom models"},
		{"bad request", &ai.BadRequestError{APIError: api}, ai.ProviderOpenRouter, "--prompt-limit"},
		{"server", &ai.ServerError{APIError: api}, ai.ProviderOpenRouter, "server error"},
		{"other", errors.New("boom"), ai.ProviderOpenRouter, "generation failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := explainGenerateError(tt.err, tt.provider, "m")
			assert.ErrorContains(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFormatAndWriteOutput(t *testing.T) {
	res := &codegen.Result{Code: "export default () => null;", Language: "jsx", Model: "m"}

	var buf bytes.Buffer
	require.NoError(t, formatAndWriteOutput(res, outputOptions{Writer: &buf}))
	assert.Contains(t, buf.String(), "=== Chart component (m) ===")
	assert.Contains(t, buf.String(), res.Code)

	buf.Reset()
	require.NoError(t, formatAndWriteOutput(res, outputOptions{JSON: true, Query: "q", Provider: "openai", Writer: &buf}))
	assert.JSONEq(t, `{"source":"","query":"q","provider":"openai","prompt_tokens":0,
		"code":"export default () => null;","language":"jsx","model":"m",
		"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`, buf.String())

	buf.Reset()
	path := filepath.Join(t.TempDir(), "out", "Chart.jsx")
	require.NoError(t, formatAndWriteOutput(res, outputOptions{OutputPath: path, Writer: &buf}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Code+"\n", string(b))
	assert.Contains(t, buf.String(), "Saved component to")
	assert.NotContains(t, buf.String(), res.Code)
}
