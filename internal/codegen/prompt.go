// Package codegen turns a processed dataset into a prompt for a language
// model and extracts the chart component it returns.
package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

// DefaultFramework is the charting library the prompt asks for.
const DefaultFramework = "recharts"

// minDataTokens is the smallest data section kept when a token limit
// forces truncation.
const minDataTokens = 64

// Input is everything the prompt is rendered from.
type Input struct {
	Name      string
	Query     string
	Response  *pipeline.Response
	Framework string
}

// Prompt is a rendered system/user message pair.
type Prompt struct {
	System    string
	User      string
	Tokens    int
	Breakdown map[string]int
	// Truncated is set when data rows were dropped to honour the limit.
	Truncated bool
}

// Build renders the prompt. A positive tokenLimit caps the whole prompt by
// trimming the data section, never the instructions.
func Build(in Input, tokenLimit int) (*Prompt, error) {
	if in.Response == nil {
		return nil, fmt.Errorf("build prompt: no processed data")
	}
	framework := in.Framework
	if framework == "" {
		framework = DefaultFramework
	}
	system := systemPrompt(framework)

	var req strings.Builder
	req.WriteString("[REQUEST]\n")
	if q := strings.TrimSpace(in.Query); q != "" {
		req.WriteString(q)
	} else {
		req.WriteString("(no description given; choose a sensible chart)")
	}
	req.WriteString("\n\n[CHART]\n")
	writeChart(&req, in.Response)

	var ins strings.Builder
	if len(in.Response.Insights) > 0 {
		ins.WriteString("\n[INSIGHTS]\n")
		for _, s := range in.Response.Insights {
			fmt.Fprintf(&ins, "- %s\n", s)
		}
	}

	summary := ""
	if in.Response.Summary != nil {
		r := analysis.Report{Name: in.Name, Summary: in.Response.Summary}
		summary = "\n" + r.Markdown()
	}

	data := dataLines(in.Response.ProcessedData)
	head := req.String() + ins.String() + summary
	truncated := false
	if tokenLimit > 0 {
		budget := tokenLimit - utils.CountTokens(system) - utils.CountTokens(head)
		if budget < minDataTokens {
			budget = minDataTokens
		}
		if utils.CountTokens(data) > budget {
			data = utils.TruncateToTokenLimit(data, budget)
			truncated = true
		}
	}

	var user strings.Builder
	user.WriteString(head)
	user.WriteString("\n[DATA]\n")
	user.WriteString(data)
	if truncated {
		user.WriteString("(data truncated to fit the prompt limit)\n")
	}

	p := &Prompt{
		System: system,
		User:   user.String(),
		Breakdown: utils.TokenBreakdown(map[string]string{
			"instructions": system,
			"request":      req.String(),
			"insights":     ins.String(),
			"summary":      summary,
			"data":         data,
		}),
		Truncated: truncated,
	}
	p.Tokens = utils.CountTokens(p.System) + utils.CountTokens(p.User)
	return p, nil
}

func systemPrompt(framework string) string {
	return fmt.Sprintf(`You are a front-end engineer who writes one self-contained React component that draws a chart with %s.
Rules:
- Reply with a single fenced code block and nothing else.
- Embed the data rows given under [DATA] as a constant inside the component.
- Use the chart type, x-axis, and value key given under [CHART].
- Label axes with the column names and include a tooltip and a legend.
- Export the component as the default export.`, framework)
}

func writeChart(b *strings.Builder, r *pipeline.Response) {
	fmt.Fprintf(b, "type: %s\n", r.SuggestedVisualization)
	if r.Intent != nil {
		fmt.Fprintf(b, "x_axis: %s\n", r.Intent.XAxis)
		fmt.Fprintf(b, "value_key: %s\n", r.Intent.ValueKey)
		if r.Intent.GroupBy != "" {
			fmt.Fprintf(b, "group_by: %s\n", r.Intent.GroupBy)
		}
		if r.Intent.Aggregation != "" {
			fmt.Fprintf(b, "aggregation: %s\n", r.Intent.Aggregation)
		}
	}
	if r.Reduction != nil {
		fmt.Fprintf(b, "rows: %d of %d (reduction: %s)\n",
			r.Reduction.ReducedRowCount, r.Reduction.OriginalRowCount, r.Reduction.Method)
	}
}

// dataLines renders one JSON record per line so truncation drops whole
// rows.
func dataLines(t *table.Table) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for i := range t.Rows {
		one, err := json.Marshal(t.Pick([]int{i}))
		if err != nil {
			continue
		}
		rec := strings.TrimSuffix(strings.TrimPrefix(string(one), "["), "]")
		b.WriteString(rec)
		b.WriteByte('\n')
	}
	return b.String()
}
