package codegen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
)

// ErrNoCode is returned when the model reply contains no code.
var ErrNoCode = errors.New("model returned no code")

// Options selects the model and sampling settings.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Generator sends prompts through an ai.Runtime.
type Generator struct {
	runtime ai.Runtime
	opts    Options
	logger  *zap.Logger
}

func NewGenerator(rt ai.Runtime, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Generator{runtime: rt, opts: opts, logger: logger.Named("codegen")}
}

// Result is the extracted component plus call metadata.
type Result struct {
	Code     string   `json:"code"`
	Language string   `json:"language,omitempty"`
	Model    string   `json:"model"`
	Usage    ai.Usage `json:"usage"`
	Raw      string   `json:"-"`
}

func (g *Generator) Generate(ctx context.Context, p *Prompt) (*Result, error) {
	req := ai.GenerateRequest{
		Model: g.opts.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: p.System},
			{Role: ai.RoleUser, Content: p.User},
		},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}
	g.logger.Debug("generating chart code",
		zap.String("model", g.opts.Model),
		zap.Int("prompt_tokens", p.Tokens),
		zap.Bool("truncated", p.Truncated))
	resp, err := g.runtime.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	code, lang := ExtractCode(resp.Content)
	if code == "" {
		return nil, ErrNoCode
	}
	model := resp.Model
	if model == "" {
		model = g.opts.Model
	}
	return &Result{Code: code, Language: lang, Model: model, Usage: resp.Usage, Raw: resp.Content}, nil
}

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

var preferredLangs = map[string]bool{"tsx": true, "jsx": true, "typescript": true, "javascript": true, "ts": true, "js": true}

// ExtractCode returns the first fenced block, preferring JS/TS ones, and its
// language tag. Unfenced replies are returned trimmed.
func ExtractCode(s string) (code, lang string) {
	matches := fencePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(s), ""
	}
	pick := matches[0]
	for _, m := range matches {
		if preferredLangs[strings.ToLower(m[1])] {
			pick = m
			break
		}
	}
	return strings.TrimRight(pick[2], "\n"), strings.ToLower(pick[1])
}
