package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/codegen"
	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
)

var (
	genQuery       string
	genMaxPoints   int
	genModel       string
	genProvider    string
	genFramework   string
	genMaxTokens   int
	genTemp        float64
	genDryRun      bool
	genQuiet       bool
	genJSON        bool
	genPrintPrompt bool
	genPromptLimit int
	genBudgetLimit float64
	genOutputPath  string
	genOllamaHost  string
	genTimeoutSec  int
)

var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Ask a language model for a chart component that renders the processed data",
	Example: `  vizloom generate sales.csv -q "monthly revenue trend" --dry-run
  vizloom generate sales.csv -q "units by region" --provider anthropic -o Chart.jsx
  vizloom generate sales.csv -q "revenue vs units" --provider ollama --model qwen2.5-coder
  vizloom generate sales.csv -q "top products" --budget-limit 0.01 --prompt-limit 4000`,
	Args: sourceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genJSON {
			genQuiet = true
		}
		status := cmd.ErrOrStderr()

		c, err := currentConfig()
		if err != nil {
			return err
		}
		proc := newProcessor(c)
		ds, name, err := loadDataset(cmd.Context(), proc, args)
		if err != nil {
			return err
		}
		resp, err := proc.Process(cmd.Context(), pipeline.Request{
			Data:      *ds.Data,
			Query:     genQuery,
			MaxPoints: genMaxPoints,
		})
		if err != nil {
			return err
		}

		providerName := resolveProvider(c, genProvider)
		model := selectModel(c, providerName, genModel)
		maxTokens := genMaxTokens
		if maxTokens <= 0 {
			maxTokens = c.MaxTokens
		}
		temp := c.Temperature
		if cmd.Flags().Changed("temp") {
			temp = genTemp
		}
		limit := c.PromptTokenLimit
		if cmd.Flags().Changed("prompt-limit") {
			limit = genPromptLimit
		}
		limit = promptBudget(limit, model, maxTokens)

		prompt, err := codegen.Build(codegen.Input{
			Name:      name,
			Query:     genQuery,
			Response:  resp,
			Framework: genFramework,
		}, limit)
		if err != nil {
			return err
		}
		if prompt.Truncated && !genQuiet {
			printWarn(status, "Prompt exceeds limit (%d tokens). Data rows were truncated before send.", limit)
		}
		if !genQuiet {
			b := prompt.Breakdown
			fmt.Fprintf(status, "Tokens: total≈%d (instructions≈%d, request≈%d, insights≈%d, summary≈%d, data≈%d)\n",
				prompt.Tokens, b["instructions"], b["request"], b["insights"], b["summary"], b["data"])
		}

		var estCost float64
		if cost, ok := ai.EstimateCostUSD(model, prompt.Tokens, maxTokens); ok {
			estCost = cost
			if !genQuiet {
				mi, _ := ai.LookupModel(model)
				fmt.Fprintf(status, "Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
			}
		}
		if err := enforceBudget(estCost, genBudgetLimit); err != nil {
			return err
		}

		if genDryRun {
			out := cmd.OutOrStdout()
			if !genQuiet {
				// Deterministic dry-run request id for observability
				sum := sha1.Sum([]byte(prompt.System + prompt.User))
				fmt.Fprintln(status, "\n--dry-run: no API call will be made. Prompt preview below --")
				fmt.Fprintf(status, "Request ID (dry-run): sim_%x\n", sum[:6])
			}
			fmt.Fprintln(out, prompt.System)
			fmt.Fprintln(out)
			fmt.Fprintln(out, prompt.User)
			return nil
		}

		if genPrintPrompt && !genQuiet {
			fmt.Fprintln(status, "\n--print-prompt: sending the following prompt --")
			fmt.Fprintln(status, prompt.System)
			fmt.Fprintln(status, prompt.User)
		}

		runtime, providerName, err := buildRuntime(c, runtimeOptions{
			ProviderFlag: providerName,
			OllamaHost:   genOllamaHost,
		})
		if err != nil {
			return err
		}

		timeoutSec := genTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 180
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		if !genQuiet {
			fmt.Fprintf(status, "⚙ Generating with %s model=%s (prompt tokens≈%d) ...\n", providerName, model, prompt.Tokens)
		}
		gen := codegen.NewGenerator(runtime, codegen.Options{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temp,
		}, logger)
		res, err := gen.Generate(ctx, prompt)
		if err != nil {
			return explainGenerateError(err, providerName, model)
		}
		return formatAndWriteOutput(res, outputOptions{
			JSON:         genJSON,
			Quiet:        genQuiet,
			Source:       name,
			Query:        genQuery,
			Provider:     providerName,
			PromptTokens: prompt.Tokens,
			OutputPath:   genOutputPath,
			Writer:       cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.StringVarP(&genQuery, "query", "q", "", "plain-language chart request")
	f.IntVar(&genMaxPoints, "max-points", 0, "row budget for the chart (0 = config default_max_points)")
	f.StringVar(&genModel, "model", "", "override model (default from config or provider)")
	f.StringVar(&genProvider, "provider", "", "AI provider: openrouter|openai|anthropic|ollama (default from config)")
	f.StringVar(&genFramework, "framework", codegen.DefaultFramework, "charting library the component should use")
	f.IntVar(&genMaxTokens, "max-tokens", 0, "max tokens for the response (0 = config max_tokens)")
	f.Float64Var(&genTemp, "temp", 0, "sampling temperature (default from config)")
	f.BoolVar(&genDryRun, "dry-run", false, "build the prompt and print it without calling the API")
	f.BoolVar(&genPrintPrompt, "print-prompt", false, "print the prompt being sent to the API")
	f.IntVar(&genPromptLimit, "prompt-limit", 0, "cap the prompt at this many tokens (default from config)")
	f.Float64Var(&genBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	f.StringVarP(&genOutputPath, "output", "o", "", "write the component to this path")
	f.BoolVar(&genQuiet, "quiet", false, "suppress non-essential output")
	f.BoolVar(&genJSON, "json", false, "emit the result as JSON to stdout")
	f.StringVar(&genOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	f.IntVar(&genTimeoutSec, "timeout-sec", 180, "request timeout in seconds")
	addSourceFlags(generateCmd)
}
