package insight

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

func generate(t *testing.T, tb *table.Table, opts Options) []string {
	t.Helper()
	s, err := analysis.Inspect(tb)
	require.NoError(t, err)
	return Generate(tb, s, opts)
}

func TestGenerateScenario(t *testing.T) {
	tb := table.FromRecords([]string{"category", "value"}, []map[string]any{
		{"category": "A", "value": 10},
		{"category": "B", "value": 20},
		{"category": "A", "value": 5},
	})
	got := generate(t, tb, DefaultOptions())
	assert.Equal(t, []string{
		"value has the highest variance among numeric columns.",
		"category has the most unique values (2) among categorical columns.",
		"value: min 5, max 20, mean 11.67.",
		"Dataset has 3 rows and 2 columns.",
	}, got)
}

func TestGenerateCorrelations(t *testing.T) {
	tb := table.New([]string{"x", "y", "z"})
	for i := 1; i <= 10; i++ {
		tb.Append([]table.Value{table.Number(float64(i)), table.Number(float64(2*i + 1)), table.Number(float64(11 - i))})
	}
	got := generate(t, tb, DefaultOptions())
	require.GreaterOrEqual(t, len(got), 4)
	for _, line := range got[:3] {
		assert.True(t, strings.HasPrefix(line, "There is a strong "), line)
	}
	assert.Contains(t, got, "There is a strong positive correlation (1) between x and y.")
	assert.Contains(t, got, "There is a strong negative correlation (-1) between x and z.")
	assert.Equal(t, "Dataset has 10 rows and 3 columns.", got[len(got)-1])
}

func TestGenerateModerateAndWeakCorrelation(t *testing.T) {
	// r(a,b) is about 0.7; r(a,c) is near zero.
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float64{2, 1, 4, 3, 7, 5, 4, 8}
	c := []float64{5, 1, 5, 1, 5, 1, 5, 1}
	tb := table.New([]string{"a", "b", "c"})
	for i := range a {
		tb.Append([]table.Value{table.Number(a[i]), table.Number(b[i]), table.Number(c[i])})
	}
	s, err := analysis.Inspect(tb)
	require.NoError(t, err)
	r, _ := s.Correlation.Get("a", "b")
	require.Greater(t, r, 0.6)
	require.LessOrEqual(t, r, 0.8)

	got := Generate(tb, s, DefaultOptions())
	var corr []string
	for _, line := range got {
		if strings.HasPrefix(line, "There is a") {
			corr = append(corr, line)
		}
	}
	require.Len(t, corr, 1)
	assert.True(t, strings.HasPrefix(corr[0], "There is a moderate positive correlation"), corr[0])
	assert.True(t, strings.HasSuffix(corr[0], "between a and b."), corr[0])
}

func dailyTable(start time.Time, days int, value func(i int) float64) *table.Table {
	tb := table.New([]string{"date", "sales"})
	for i := 0; i < days; i++ {
		tb.Append([]table.Value{table.Time(start.AddDate(0, 0, i)), table.Number(value(i))})
	}
	return tb
}

func TestGenerateTrend(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	up := generate(t, dailyTable(start, 30, func(i int) float64 { return 100 + 5*float64(i) }), DefaultOptions())
	assert.Equal(t, "sales shows an increasing trend over date (+84.1% change across the period).", up[0])

	down := generate(t, dailyTable(start, 30, func(i int) float64 { return 300 - 5*float64(i) }), DefaultOptions())
	assert.True(t, strings.HasPrefix(down[0], "sales shows a decreasing trend over date (-"), down[0])

	flat := generate(t, dailyTable(start, 30, func(i int) float64 { return 100 + float64(i%2) }), DefaultOptions())
	for _, line := range flat {
		assert.NotContains(t, line, "trend")
	}
}

func TestGenerateTrendIgnoresShuffledOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := dailyTable(start, 30, func(i int) float64 { return 100 + 5*float64(i) })
	for i, j := 0, len(tb.Rows)-1; i < j; i, j = i+1, j-1 {
		tb.Rows[i], tb.Rows[j] = tb.Rows[j], tb.Rows[i]
	}
	got := generate(t, tb, DefaultOptions())
	assert.Equal(t, "sales shows an increasing trend over date (+84.1% change across the period).", got[0])
}

func TestGenerateOutliers(t *testing.T) {
	tb := table.New([]string{"reading"})
	for i := 0; i < 20; i++ {
		tb.Append([]table.Value{table.Number(10)})
	}
	tb.Append([]table.Value{table.Number(1000)})

	got := generate(t, tb, DefaultOptions())
	assert.Equal(t, "reading has 1 outlier beyond 3 standard deviations from the mean (4.8% of values).", got[0])

	opts := DefaultOptions()
	opts.OutlierSigma = 5
	for _, line := range generate(t, tb, opts) {
		assert.NotContains(t, line, "outlier")
	}
}

func TestGenerateMissingValues(t *testing.T) {
	tb := table.New([]string{"name", "score"})
	tb.Append([]table.Value{table.Text("a"), table.Number(1)})
	tb.Append([]table.Value{table.Text(""), table.Number(2)})
	tb.Append([]table.Value{table.Text("c"), table.Null()})
	tb.Append([]table.Value{table.Text("d"), table.Number(4)})

	got := generate(t, tb, DefaultOptions())
	assert.Contains(t, got, "Dataset contains 2 missing values (25% of all cells).")
}

func TestGenerateSkipsPerColumnLinesForWideTables(t *testing.T) {
	cols := []string{"a", "b", "c", "d", "e", "f"}
	tb := table.New(cols)
	for i := 0; i < 4; i++ {
		row := make([]table.Value, len(cols))
		for j := range cols {
			row[j] = table.Number(float64((i*7 + j*3) % 5))
		}
		tb.Append(row)
	}
	for _, line := range generate(t, tb, DefaultOptions()) {
		assert.NotContains(t, line, ": min ")
	}
}

func TestGenerateCapKeepsDatasetSize(t *testing.T) {
	cols := make([]string, 6)
	for i := range cols {
		cols[i] = fmt.Sprintf("m%d", i)
	}
	tb := table.New(cols)
	for i := 1; i <= 12; i++ {
		row := make([]table.Value, len(cols))
		for j := range cols {
			row[j] = table.Number(float64(i * (j + 1)))
		}
		tb.Append(row)
	}

	got := generate(t, tb, DefaultOptions())
	require.Len(t, got, 10)
	assert.Equal(t, "Dataset has 12 rows and 6 columns.", got[9])

	opts := DefaultOptions()
	opts.MaxInsights = 0
	assert.Equal(t, []string{"Dataset has 12 rows and 6 columns."}, generate(t, tb, opts))

	opts.MaxInsights = 3
	got = generate(t, tb, opts)
	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[0], "There is a strong positive correlation"))
}

func TestGenerateNilSummaryAndEmptyTable(t *testing.T) {
	tb := table.FromRecords([]string{"k", "v"}, []map[string]any{{"k": "x", "v": 1}})
	got := Generate(tb, nil, DefaultOptions())
	assert.Equal(t, "Dataset has 1 rows and 2 columns.", got[len(got)-1])

	assert.Nil(t, Generate(table.New([]string{"k"}), nil, DefaultOptions()))
}
