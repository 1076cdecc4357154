package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,region,units,revenue
2024-01-05,North,10,100
2024-01-20,South,12,130
2024-02-03,North,9,95
2024-02-18,South,15,160
2024-03-02,North,11,118
2024-03-21,South,14,150
`

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args in an isolated HOME and
// returns what it wrote to stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSales(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))
	return path
}

func TestCLI_AnalyzeMarkdownAndJSON(t *testing.T) {
	path := writeSales(t)

	out, err := runCmd(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "File: sales.csv")
	assert.Contains(t, out, "[HEAD AND SAMPLE ROWS]")
	assert.Contains(t, out, "[NOTES]")
	assert.Contains(t, out, "Dataset has 6 rows and 4 columns.")

	out, err = runCmd(t, "analyze", path, "--json")
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 6, summary["row_count"])
}

func TestCLI_AnalyzeWritesOutputFile(t *testing.T) {
	path := writeSales(t)
	dest := filepath.Join(t.TempDir(), "reports", "sales.md")

	out, err := runCmd(t, "analyze", path, "--head", "0", "--insights=false", "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "[HEAD AND SAMPLE ROWS]")
	assert.NotContains(t, string(b), "[NOTES]")
}

func TestCLI_SourceArguments(t *testing.T) {
	_, err := runCmd(t, "analyze")
	assert.Error(t, err)

	_, err = runCmd(t, "analyze", "x.csv", "--db-driver", "sqlite")
	assert.ErrorContains(t, err, "not both")

	_, err = runCmd(t, "analyze", "--db-driver", "sqlite", "--dsn", "x.db")
	assert.ErrorContains(t, err, "--dsn and --sql are required")

	_, err = runCmd(t, "analyze", filepath.Join(t.TempDir(), "report.pdf"))
	assert.ErrorContains(t, err, "unsupported format")
}

func TestCLI_AnalyzeSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`create table orders (region text, amount real)`)
	require.NoError(t, err)
	_, err = db.Exec(`insert into orders values ('North', 10), ('South', 20), ('North', 5)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCmd(t, "analyze", "--db-driver", "sqlite", "--dsn", dsn, "--sql", "select * from orders", "--json")
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 3, summary["row_count"])
	assert.EqualValues(t, 2, summary["column_count"])
}

func TestCLI_Process(t *testing.T) {
	path := writeSales(t)

	out, err := runCmd(t, "process", path, "-q", "revenue trend over time", "--max-points", "3")
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "LineChart", resp["suggested_visualization"])
	assert.LessOrEqual(t, len(resp["processed_data"].([]any)), 3)
	insights := resp["insights"].([]any)
	require.NotEmpty(t, insights)
	assert.Contains(t, insights[0], "Dataset reduced from 6 to")

	out, err = runCmd(t, "process", path, "-q", "revenue trend over time", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Chart: LineChart (x=date, value=")
	assert.Contains(t, out, "Insights:")

	_, err = runCmd(t, "process", path, "--max-points", "-1")
	assert.ErrorContains(t, err, "--max-points")
}

func TestCLI_GenerateDryRun(t *testing.T) {
	path := writeSales(t)

	out, err := runCmd(t, "generate", path, "-q", "revenue by region", "--dry-run", "--provider", "ollama")
	require.NoError(t, err)
	assert.Contains(t, out, "recharts")
	assert.Contains(t, out, "[REQUEST]\nrevenue by region")
	assert.Contains(t, out, "[DATA]")

	out, err = runCmd(t, "generate", path, "-q", "revenue by region", "--dry-run", "--framework", "chart.js")
	require.NoError(t, err)
	assert.Contains(t, out, "chart.js")
}

func TestCLI_GenerateBudgetLimitBlocks(t *testing.T) {
	path := writeSales(t)
	_, err := runCmd(t, "generate", path, "-q", "revenue by region", "--dry-run",
		"--provider", "openai", "--model", "gpt-4o", "--budget-limit", "0.0000001")
	assert.ErrorContains(t, err, "exceeds budget limit")
}

func TestCLI_GenerateMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("VIZLOOM_API_KEY", "")
	path := writeSales(t)
	_, err := runCmd(t, "generate", path, "-q", "revenue by region", "--provider", "anthropic")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestCLI_Sample(t *testing.T) {
	out, err := runCmd(t, "sample")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "date,region,product,units,unit_price,revenue\n"))

	out, err = runCmd(t, "sample", "--json")
	require.NoError(t, err)
	var ds map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &ds))
	assert.Len(t, ds["data"], 144)
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCmd(t, "--config", cfgPath, "config", "set", "default_max_points", "25")
	require.NoError(t, err)
	_, err = runCmd(t, "--config", cfgPath, "config", "set", "api_key", "sk-1234567890")
	require.NoError(t, err)

	out, err := runCmd(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_max_points: 25")
	assert.Contains(t, out, "api_key: sk-****890")

	_, err = runCmd(t, "--config", cfgPath, "config", "set", "sample_mode", "random")
	assert.ErrorContains(t, err, "invalid sample_mode")
	_, err = runCmd(t, "--config", cfgPath, "config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestCLI_Models(t *testing.T) {
	out, err := runCmd(t, "models", "--json")
	require.NoError(t, err)
	var got struct {
		Providers []string         `json:"providers"`
		Models    []map[string]any `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got.Providers, "anthropic")
	assert.NotEmpty(t, got.Models)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "******", mask("abc"))
	assert.Equal(t, "sk-****890", mask("sk-1234567890"))
}
