package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers and the model catalog used for sizing and pricing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		if modelsJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"providers": ai.Providers(),
				"models":    cat,
			}, "")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tCONTEXT\tIN/1K\tOUT/1K")
		for _, m := range cat {
			in, out := "-", "-"
			if m.InputPerK > 0 || m.OutputPerK > 0 {
				in, out = fmt.Sprintf("$%.5f", m.InputPerK), fmt.Sprintf("$%.5f", m.OutputPerK)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", m.Name, m.ContextTokens, in, out)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nProviders: %v\n", ai.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "emit the catalog as JSON")
}
