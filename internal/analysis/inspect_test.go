package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

func scenarioTable() *table.Table {
	return table.FromRecords([]string{"category", "value"}, []map[string]any{
		{"category": "A", "value": 10},
		{"category": "B", "value": 20},
		{"category": "A", "value": 5},
	})
}

func TestInspectScenario(t *testing.T) {
	s, err := Inspect(scenarioTable())
	require.NoError(t, err)
	assert.Equal(t, 3, s.RowCount)
	assert.Equal(t, 2, s.ColumnCount)

	cat, ok := s.Column("category")
	require.True(t, ok)
	assert.Equal(t, Categorical, cat.Type)
	assert.Equal(t, []ValueCount{{"A", 2}, {"B", 1}}, cat.TopValues)
	assert.Equal(t, 2, cat.UniqueCount)

	val, ok := s.Column("value")
	require.True(t, ok)
	assert.Equal(t, Numeric, val.Type)
	require.NotNil(t, val.Mean)
	assert.InDelta(t, 11.67, *val.Mean, 0.005)
	assert.Equal(t, 10.0, *val.Median)
	assert.Equal(t, 5.0, *val.Min)
	assert.Equal(t, 20.0, *val.Max)
	require.NotNil(t, val.Std)
	assert.InDelta(t, 7.6376, *val.Std, 1e-4)

	assert.Equal(t, []string{"value"}, s.NumericColumns())
	assert.Equal(t, []string{"category"}, s.CategoricalColumns())
	assert.Equal(t, Numeric, s.TypeOf("value"))
	assert.Equal(t, ColumnType(""), s.TypeOf("nope"))
}

func TestInspectEmpty(t *testing.T) {
	var empty *table.EmptyTableError
	_, err := Inspect(table.New([]string{"a"}))
	assert.True(t, errors.As(err, &empty))
	_, err = Inspect(table.New(nil))
	assert.True(t, errors.As(err, &empty))
}

func TestInspectTypeInference(t *testing.T) {
	cols := []string{"num_text", "when", "id", "mixed", "blank", "flag", "few_unique"}
	tb := table.New(cols)
	for i := 0; i < 12; i++ {
		tb.Append([]table.Value{
			table.Text(fmt.Sprintf("%d.5", i)),
			table.Text(fmt.Sprintf("2024-01-%02d", i+1)),
			table.Text(fmt.Sprintf("user-%03d", i)),
			table.Text(map[bool]string{true: "7", false: "seven"}[i%2 == 0]),
			table.Null(),
			table.Bool(i%2 == 0),
			table.Text(fmt.Sprintf("k%d", i%3)),
		})
	}
	s, err := Inspect(tb)
	require.NoError(t, err)

	want := map[string]ColumnType{
		"num_text":   Numeric,
		"when":       Datetime,
		"id":         Identifier,
		"mixed":      Categorical,
		"blank":      Categorical,
		"flag":       Categorical,
		"few_unique": Categorical,
	}
	for name, ct := range want {
		assert.Equal(t, ct, s.TypeOf(name), name)
	}

	when, _ := s.Column("when")
	assert.Equal(t, "2024-01-01", when.Earliest)
	assert.Equal(t, "2024-01-12", when.Latest)

	blank, _ := s.Column("blank")
	assert.Equal(t, 12, blank.NullCount)
	assert.Equal(t, 0, blank.UniqueCount)
	assert.Empty(t, blank.SampleValues)

	id, _ := s.Column("id")
	assert.Len(t, id.SampleValues, SampleValuesLimit)
	assert.Nil(t, id.TopValues)
}

func TestIdentifierNeedsEnoughValues(t *testing.T) {
	tb := table.New([]string{"code"})
	for i := 0; i < IdentifierMinValues-1; i++ {
		tb.Append([]table.Value{table.Text(fmt.Sprintf("c%d", i))})
	}
	s, err := Inspect(tb)
	require.NoError(t, err)
	assert.Equal(t, Categorical, s.TypeOf("code"))
}

func TestMedianEvenCount(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestTopValuesTiesKeepFirstSeen(t *testing.T) {
	tb := table.New([]string{"c"})
	for _, v := range []string{"z", "y", "x", "y", "z", "w"} {
		tb.Append([]table.Value{table.Text(v)})
	}
	s, err := Inspect(tb)
	require.NoError(t, err)
	c, _ := s.Column("c")
	assert.Equal(t, []ValueCount{{"z", 2}, {"y", 2}, {"x", 1}, {"w", 1}}, c.TopValues)
}

func TestTopValuesLimit(t *testing.T) {
	tb := table.New([]string{"c"})
	for i := 0; i < 30; i++ {
		tb.Append([]table.Value{table.Text(fmt.Sprintf("v%d", i%15))})
	}
	s, err := Inspect(tb)
	require.NoError(t, err)
	c, _ := s.Column("c")
	assert.Equal(t, Categorical, c.Type)
	assert.Len(t, c.TopValues, TopValuesLimit)
}

func TestCorrelationMatrix(t *testing.T) {
	tb := table.New([]string{"x", "y", "z", "const"})
	rows := [][]any{
		{1, 2, 9, 4},
		{2, 4, 7, 4},
		{3, 6, nil, 4},
		{4, 8, 3, 4},
		{nil, 100, 1, 4},
	}
	for _, r := range rows {
		vals := make([]table.Value, len(r))
		for i, v := range r {
			vals[i] = table.FromAny(v)
		}
		tb.Append(vals)
	}
	s, err := Inspect(tb)
	require.NoError(t, err)
	m := s.Correlation
	require.NotNil(t, m)
	require.Equal(t, []string{"x", "y", "z", "const"}, m.Columns)

	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
		}
	}
	xy, _ := m.Get("x", "y")
	assert.InDelta(t, 1.0, xy, 1e-12, "null in x excludes the 100 outlier pairwise")
	xz, _ := m.Get("x", "z")
	assert.InDelta(t, -1.0, xz, 1e-12)
	xc, _ := m.Get("x", "const")
	assert.Equal(t, 0.0, xc, "zero variance reports 0")
	_, ok := m.Get("x", "missing")
	assert.False(t, ok)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	cm := decoded["correlation_matrix"].(map[string]any)
	assert.Equal(t, 1.0, cm["x"].(map[string]any)["x"])
	assert.True(t, strings.HasPrefix(string(b), `{"row_count":5,"column_count":4,`))
}

func TestNoNumericColumnsHasNullMatrix(t *testing.T) {
	tb := table.New([]string{"c"})
	tb.Append([]table.Value{table.Text("a")})
	s, err := Inspect(tb)
	require.NoError(t, err)
	assert.Nil(t, s.Correlation)
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"correlation_matrix":null`)
}

func TestPearsonDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}, []bool{true}, []bool{true}))
	assert.Equal(t, 0.0, Pearson([]float64{1, 2}, []float64{3, 4}, []bool{true, false}, []bool{true, true}))
}

func TestLinearFit(t *testing.T) {
	slope, icpt := LinearFit([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, slope, 1e-12)
	assert.InDelta(t, 1.0, icpt, 1e-12)
	slope, _ = LinearFit([]float64{1, 1}, []float64{1, 5})
	assert.Equal(t, 0.0, slope)
}

func TestStatsHelpers(t *testing.T) {
	xs, ok := Floats([]table.Value{table.Number(1), table.Null(), table.Text("3"), table.Text("x")})
	assert.Equal(t, []bool{true, false, true, false}, ok)
	assert.Equal(t, []float64{1, 3}, Present(xs, ok))
	assert.Equal(t, 2.0, Mean([]float64{1, 3}))
	assert.InDelta(t, math.Sqrt(2), StdDev([]float64{1, 3}), 1e-12)
	assert.Equal(t, 2.0, Variance([]float64{1, 3}))
	assert.Equal(t, 0.0, Variance([]float64{1}))
	assert.Equal(t, 2.5, Quantile([]float64{1, 2, 3, 4}, 0.5))
}

func TestReportMarkdown(t *testing.T) {
	tb := scenarioTable()
	tb.Columns = append(tb.Columns, "other")
	for i := range tb.Rows {
		tb.Rows[i] = append(tb.Rows[i], table.Number(float64(i)))
	}
	s, err := Inspect(tb)
	require.NoError(t, err)
	md := (&Report{Name: "demo.csv", Summary: s, Head: tb.Head(2), Notes: []string{"reduced by aggregate"}}).Markdown()

	for _, want := range []string{
		"[DATASET SUMMARY]", "File: demo.csv", "Rows: 3", "Columns: 3",
		"[SCHEMA]", "- category: categorical", "top: A(2), B(1)",
		"- value: numeric", "mean 11.6667",
		"[CORRELATIONS]", "value ~ other",
		"[HEAD AND SAMPLE ROWS]", "| category | value | other |",
		"[NOTES]", "- reduced by aggregate",
	} {
		assert.Contains(t, md, want)
	}
}

func TestTopPairs(t *testing.T) {
	m := &CorrMatrix{
		Columns: []string{"a", "b", "c"},
		Values: [][]float64{
			{1, 0.2, -0.9},
			{0.2, 1, 0.5},
			{-0.9, 0.5, 1},
		},
	}
	pairs := TopPairs(m, 2)
	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{"a", "c", -0.9}, pairs[0])
	assert.Equal(t, Pair{"b", "c", 0.5}, pairs[1])
	assert.Len(t, TopPairs(m, 0), 3)
	assert.Nil(t, TopPairs(nil, 3))
}
