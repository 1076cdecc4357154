package ai

import "sort"

// Model metadata used to size prompts and estimate cost. Prices are
// illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string  `json:"name"`
	ContextTokens int     `json:"context_tokens"` // approximate context window
	InputPerK     float64 `json:"input_per_1k"`   // USD per 1K input tokens
	OutputPerK    float64 `json:"output_per_1k"`  // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"openai/gpt-4o-mini":          {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"openai/gpt-4o":               {Name: "openai/gpt-4o", ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"gpt-4o-mini":                 {Name: "gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"gpt-4o":                      {Name: "gpt-4o", ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"anthropic/claude-3.5-sonnet": {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	"claude-3-5-haiku-latest":     {Name: "claude-3-5-haiku-latest", ContextTokens: 200000, InputPerK: 0.0008, OutputPerK: 0.004},
	"claude-sonnet-4-5":           {Name: "claude-sonnet-4-5", ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	"llama3.1":                    {Name: "llama3.1", ContextTokens: 8192},
	"qwen2.5-coder":               {Name: "qwen2.5-coder", ContextTokens: 32768},
}

// LookupModel returns the catalog entry for name.
func LookupModel(name string) (ModelInfo, bool) {
	m, ok := models[name]
	return m, ok
}

// EstimateCostUSD prices a call. ok is false for models without pricing.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	m, ok := models[model]
	if !ok || (m.InputPerK == 0 && m.OutputPerK == 0) {
		return 0, false
	}
	return float64(promptTokens)/1000*m.InputPerK + float64(completionTokens)/1000*m.OutputPerK, true
}

// Catalog returns the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
