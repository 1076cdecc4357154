package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
)

var (
	procQuery      string
	procMaxPoints  int
	procOutputPath string
	procSummary    bool
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Reduce a dataset for a chart request and print the chart-ready response",
	Example: `  vizloom process sales.csv --query "monthly revenue trend"
  vizloom process sales.csv -q "share of units by region" --max-points 20 -o out.json
  vizloom process sales.csv -q "revenue by product" --summary`,
	Args: sourceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if procMaxPoints < 0 {
			return fmt.Errorf("--max-points must not be negative")
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		proc := newProcessor(c)
		ds, _, err := loadDataset(cmd.Context(), proc, args)
		if err != nil {
			return err
		}
		resp, err := proc.Process(cmd.Context(), pipeline.Request{
			Data:      *ds.Data,
			Query:     procQuery,
			MaxPoints: procMaxPoints,
		})
		if err != nil {
			return err
		}
		if procSummary {
			writeProcessSummary(cmd.OutOrStdout(), resp)
			if procOutputPath == "" {
				return nil
			}
		}
		return writeJSON(cmd.OutOrStdout(), resp, procOutputPath)
	},
}

// writeProcessSummary prints a short human-readable digest of resp.
func writeProcessSummary(w io.Writer, resp *pipeline.Response) {
	fmt.Fprintf(w, "Chart: %s", resp.SuggestedVisualization)
	if resp.Intent != nil {
		fmt.Fprintf(w, " (x=%s, value=%s", resp.Intent.XAxis, resp.Intent.ValueKey)
		if resp.Intent.GroupBy != "" {
			fmt.Fprintf(w, ", group=%s", resp.Intent.GroupBy)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
	if resp.Reduction != nil {
		fmt.Fprintf(w, "Rows: %d -> %d (%s)\n",
			resp.Reduction.OriginalRowCount, resp.Reduction.ReducedRowCount, resp.Reduction.Method)
	}
	if len(resp.Charts) > 0 {
		titles := make([]string, len(resp.Charts))
		for i, ch := range resp.Charts {
			titles[i] = ch.Title
		}
		fmt.Fprintf(w, "Extra charts: %s\n", strings.Join(titles, "; "))
	}
	fmt.Fprintln(w, "Insights:")
	for _, s := range resp.Insights {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&procQuery, "query", "q", "", "plain-language chart request")
	processCmd.Flags().IntVar(&procMaxPoints, "max-points", 0, "row budget for the chart (0 = config default_max_points)")
	processCmd.Flags().StringVarP(&procOutputPath, "output", "o", "", "write the JSON response to this path")
	processCmd.Flags().BoolVar(&procSummary, "summary", false, "print a readable digest instead of JSON on stdout")
	addSourceFlags(processCmd)
}
