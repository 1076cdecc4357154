package ai

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultOllamaHost is where a local Ollama server listens by default.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Hosted providers
	APIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Ollama
	Host   string
	Logger *zap.Logger
}

func (c RuntimeConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger.Named("ai")
}

func (c RuntimeConfig) retrier(logger *zap.Logger) Retrier {
	return Retrier{MaxAttempts: c.RetryMax, BaseDelay: c.BaseDelay, MaxDelay: c.MaxDelay, Logger: logger}
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[NormalizeProvider(name)]; ok {
		return f(cfg), true
	}
	return nil, false
}

// Providers lists registered provider names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// init registers built-in runtimes.
func init() {
	for _, p := range []string{ProviderOpenRouter, ProviderOpenAI} {
		RegisterRuntime(p, func(c RuntimeConfig) Runtime { return NewOpenAIRuntime(p, c) })
	}
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		if c.RetryMax <= 0 {
			c.RetryMax = 2
		}
		if c.BaseDelay <= 0 {
			c.BaseDelay = 200 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = 1 * time.Second
		}
		return NewOpenAIRuntime(ProviderOllama, c)
	})
	RegisterRuntime(ProviderAnthropic, func(c RuntimeConfig) Runtime { return NewAnthropicRuntime(c) })
}
