package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vizloom-cli/internal/ingest"
	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
)

// Database source flags shared by analyze, process, and generate.
var (
	srcDriver string
	srcDSN    string
	srcSQL    string
	srcLimit  int
)

func addSourceFlags(c *cobra.Command) {
	c.Flags().StringVar(&srcDriver, "db-driver", "", "read from a database instead of a file: sqlite|postgres")
	c.Flags().StringVar(&srcDSN, "dsn", "", "database DSN (file path for sqlite, URL for postgres)")
	c.Flags().StringVar(&srcSQL, "sql", "", "query whose result set is analysed")
	c.Flags().IntVar(&srcLimit, "limit", 0, "cap rows read from the database (0 = no cap)")
}

// sourceArgs accepts a file argument, or none when --db-driver is set.
func sourceArgs(c *cobra.Command, args []string) error {
	if srcDriver != "" {
		if len(args) > 0 {
			return fmt.Errorf("pass either a file or --db-driver, not both")
		}
		return nil
	}
	return cobra.ExactArgs(1)(c, args)
}

// loadDataset ingests the file in args or the configured database query.
// The returned name labels reports.
func loadDataset(ctx context.Context, proc *pipeline.Processor, args []string) (*pipeline.Dataset, string, error) {
	if srcDriver != "" {
		if srcDSN == "" || srcSQL == "" {
			return nil, "", fmt.Errorf("--dsn and --sql are required with --db-driver")
		}
		ds, err := proc.IngestSQL(ctx, ingest.SQLSource{
			Driver: srcDriver,
			DSN:    srcDSN,
			Query:  srcSQL,
			Limit:  srcLimit,
		})
		if err != nil {
			return nil, "", err
		}
		return ds, srcDriver + " query", nil
	}
	ds, err := proc.IngestFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return ds, filepath.Base(args[0]), nil
}
