package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/codegen"
	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

// providerDefaultModels is used when neither --model nor config names a
// model for the selected provider.
var providerDefaultModels = map[string]string{
	ai.ProviderOpenRouter: "openai/gpt-4o-mini",
	ai.ProviderOpenAI:     "gpt-4o-mini",
	ai.ProviderAnthropic:  "claude-3-5-haiku-latest",
	ai.ProviderOllama:     "qwen2.5-coder",
}

// apiKeyEnv lists the conventional key variable per hosted provider.
var apiKeyEnv = map[string]string{
	ai.ProviderOpenRouter: "OPENROUTER_API_KEY",
	ai.ProviderOpenAI:     "OPENAI_API_KEY",
	ai.ProviderAnthropic:  "ANTHROPIC_API_KEY",
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// resolveProvider picks --provider, then config, then openrouter.
func resolveProvider(cfg *cfgpkg.Global, flag string) string {
	p := ai.NormalizeProvider(flag)
	if p == "" && cfg != nil {
		p = ai.NormalizeProvider(cfg.DefaultProvider)
	}
	if p == "" {
		p = ai.ProviderOpenRouter
	}
	return p
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		Logger:      logger,
	}
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			rc.RetryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			rc.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			rc.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := resolveProvider(cfg, opts.ProviderFlag)
	if env, ok := apiKeyEnv[providerName]; ok {
		rc.APIKey = os.Getenv(env)
	}
	if rc.APIKey == "" && cfg != nil {
		rc.APIKey = cfg.APIKey
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), "|"))
	}
	return client, providerName, nil
}

// selectModel prefers --model, then the configured model when the provider
// is the configured one, then the provider's default.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" && ai.NormalizeProvider(cfg.DefaultProvider) == provider {
		return cfg.DefaultModel
	}
	if m, ok := providerDefaultModels[provider]; ok {
		return m
	}
	return providerDefaultModels[ai.ProviderOpenRouter]
}

// promptBudget returns the prompt token limit, shrunk so prompt plus
// completion fits the model's context window when the model is known.
func promptBudget(limit int, model string, maxTokens int) int {
	mi, ok := ai.LookupModel(model)
	if !ok {
		return limit
	}
	room := mi.ContextTokens - maxTokens
	if room <= 0 {
		room = mi.ContextTokens / 2
	}
	if limit <= 0 || limit > room {
		return room
	}
	return limit
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// explainGenerateError adds a user-facing hint for the typed runtime errors.
func explainGenerateError(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, codegen.ErrNoCode):
		return fmt.Errorf("the model reply held no code; retry or pick a stronger model: %w", err)
	case errors.Is(err, ai.ErrMissingAPIKey):
		env := apiKeyEnv[providerName]
		if env == "" {
			env = "the provider's API key variable"
		}
		return fmt.Errorf("no API key: set %s or run 'vizloom config set api_key <key>': %w", env, err)
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (VIZLOOM_OLLAMA_HOST or config 'ollama_host'): %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the API key for %s: %w", providerName, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with 'vizloom models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a lower --prompt-limit, fewer --max-points, or smaller --max-tokens: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return fmt.Errorf("generation failed: %w", err)
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Source       string
	Query        string
	Provider     string
	PromptTokens int
	OutputPath   string
	Writer       io.Writer
}

type generateOutput struct {
	Source       string `json:"source"`
	Query        string `json:"query"`
	Provider     string `json:"provider"`
	PromptTokens int    `json:"prompt_tokens"`
	*codegen.Result
}

func formatAndWriteOutput(res *codegen.Result, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if opts.JSON {
		b, err := json.MarshalIndent(generateOutput{
			Source:       opts.Source,
			Query:        opts.Query,
			Provider:     opts.Provider,
			PromptTokens: opts.PromptTokens,
			Result:       res,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
	} else if opts.OutputPath == "" {
		if !opts.Quiet {
			fmt.Fprintf(w, "\n=== Chart component (%s) ===\n", res.Model)
		}
		fmt.Fprintln(w, res.Code)
	}

	if opts.OutputPath == "" {
		return nil
	}
	if err := utils.SafeWriteFile(opts.OutputPath, []byte(res.Code+"\n")); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		printSuccess(w, "Saved component to %s", opts.OutputPath)
	}
	return nil
}
