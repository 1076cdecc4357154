package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/insight"
)

var (
	anaOutputPath string
	anaJSON       bool
	anaHeadRows   int
	anaInsights   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Summarise a CSV/TSV/JSON/XLSX file or a SQL result set",
	Example: `  vizloom analyze sales.csv
  vizloom analyze sales.xlsx --json
  vizloom analyze --db-driver sqlite --dsn shop.db --sql "select * from orders"`,
	Args: sourceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		proc := newProcessor(c)
		ds, name, err := loadDataset(cmd.Context(), proc, args)
		if err != nil {
			return err
		}

		if anaJSON {
			return writeJSON(cmd.OutOrStdout(), ds.Summary, anaOutputPath)
		}

		rep := analysis.Report{Name: name, Summary: ds.Summary}
		if anaHeadRows > 0 {
			rep.Head = ds.Data.Head(anaHeadRows)
		}
		if anaInsights {
			rep.Notes = insight.Generate(ds.Data, ds.Summary, pipelineOptions(c).Insight)
		}
		md := rep.Markdown()
		if anaOutputPath == "" {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		return writeText(cmd.OutOrStdout(), md, anaOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to this path")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit the summary as JSON")
	analyzeCmd.Flags().IntVar(&anaHeadRows, "head", 5, "sample rows to include in the report (0 = none)")
	analyzeCmd.Flags().BoolVar(&anaInsights, "insights", true, "append generated insights as notes")
	addSourceFlags(analyzeCmd)
}
