package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
	"github.com/KaramelBytes/vizloom-cli/internal/sample"
)

var (
	sampleOutputPath string
	sampleJSON       bool
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print the bundled sample sales dataset",
	Example: `  vizloom sample > sales.csv
  vizloom sample -o data/sales.csv
  vizloom sample --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sampleJSON {
			return writeText(cmd.OutOrStdout(), string(sample.CSV()), sampleOutputPath)
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		t, err := sample.Load()
		if err != nil {
			return err
		}
		summary, err := newProcessor(c).Analyze(t)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), pipeline.Dataset{Data: t, Summary: summary}, sampleOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringVarP(&sampleOutputPath, "output", "o", "", "write to this path instead of stdout")
	sampleCmd.Flags().BoolVar(&sampleJSON, "json", false, "emit {data, summary} JSON instead of CSV")
}
