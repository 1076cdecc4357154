package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

func summarize(t *testing.T, tb *table.Table) *analysis.Summary {
	t.Helper()
	s, err := analysis.Inspect(tb)
	require.NoError(t, err)
	return s
}

func scenarioSummary(t *testing.T) *analysis.Summary {
	return summarize(t, table.FromRecords([]string{"category", "value"}, []map[string]any{
		{"category": "A", "value": 10},
		{"category": "B", "value": 20},
		{"category": "A", "value": 5},
	}))
}

// salesSummary has a datetime, two categoricals, and three numerics.
func salesSummary(t *testing.T) *analysis.Summary {
	tb := table.New([]string{"order_date", "region", "product", "units", "unit_price", "revenue"})
	regions := []string{"North", "South", "East", "West"}
	for i := 0; i < 40; i++ {
		tb.Append([]table.Value{
			table.Text(fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1)),
			table.Text(regions[i%4]),
			table.Text(fmt.Sprintf("p%d", i%12)),
			table.Number(float64(i%7 + 1)),
			table.Number(float64(i%5) + 9.5),
			table.Number(float64((i%7 + 1) * (i%5 + 10))),
		})
	}
	return summarize(t, tb)
}

func TestInterpretPieScenario(t *testing.T) {
	in := Interpret("show a pie chart of value by category", scenarioSummary(t))
	assert.Equal(t, PieChart, in.ChartType)
	assert.Equal(t, "category", in.XAxis)
	assert.Equal(t, "value", in.ValueKey)
	assert.Empty(t, in.GroupBy)
	assert.False(t, in.Defaulted)
	assert.Equal(t, []string{"value", "category"}, in.MentionedColumns)
}

func TestInterpretEmptyDefaults(t *testing.T) {
	s := scenarioSummary(t)
	for _, q := range []string{"", "   ", "make it pretty"} {
		in := Interpret(q, s)
		assert.Equal(t, BarChart, in.ChartType, q)
		assert.Equal(t, "category", in.XAxis, q)
		assert.Equal(t, "value", in.ValueKey, q)
		assert.Equal(t, General, in.QueryType, q)
		assert.True(t, in.Defaulted, q)
		assert.NotNil(t, in.MentionedColumns)
	}
	assert.Equal(t, Interpret("", s), Interpret("", s))
}

func TestInterpretChartFamilies(t *testing.T) {
	s := salesSummary(t)
	tests := []struct {
		query string
		chart ChartType
		x     string
		value string
	}{
		{"bar chart of revenue by region", BarChart, "region", "revenue"},
		{"Revenue TREND over time", LineChart, "order_date", "revenue"},
		{"line chart of units", LineChart, "order_date", "units"},
		{"area chart of revenue growth", AreaChart, "order_date", "revenue"},
		{"relationship between unit_price and revenue", ScatterChart, "unit_price", "revenue"},
		{"compare things", ScatterChart, "units", "unit_price"},
		{"compare revenue across region", BarChart, "region", "revenue"},
		{"scatter of revenue vs units", ScatterChart, "revenue", "units"},
		{"distribution of revenue by region", PieChart, "region", "revenue"},
		{"distribution of product", BarChart, "product", "units"},
		{"show revenue", BarChart, "order_date", "revenue"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			in := Interpret(tt.query, s)
			assert.Equal(t, tt.chart, in.ChartType)
			assert.Equal(t, tt.x, in.XAxis)
			assert.Equal(t, tt.value, in.ValueKey)
		})
	}
}

func TestInterpretFirstMatchWins(t *testing.T) {
	s := salesSummary(t)
	assert.Equal(t, PieChart, Interpret("pie of the revenue trend", s).ChartType, "explicit name beats trend")
	assert.Equal(t, LineChart, Interpret("trend and distribution of units", s).ChartType, "trend beats distribution")
	assert.Equal(t, BarChart, Interpret("bar chart but also pie", s).ChartType)
}

func TestInterpretWordBoundaries(t *testing.T) {
	s := salesSummary(t)
	in := Interpret("pieces of revenue", s)
	assert.Equal(t, BarChart, in.ChartType, "pie must match a whole word")
	in = Interpret("trendy revenue", s)
	assert.NotEqual(t, LineChart, in.ChartType)
}

func TestInterpretGroupBy(t *testing.T) {
	s := salesSummary(t)
	in := Interpret("units over time for each region", s)
	assert.Equal(t, LineChart, in.ChartType)
	assert.Equal(t, "order_date", in.XAxis)
	assert.Equal(t, "region", in.GroupBy)

	in = Interpret("total revenue per product grouped by region", s)
	assert.Equal(t, "product", in.XAxis)
	assert.Equal(t, "region", in.GroupBy)
	assert.Equal(t, Aggregation, in.QueryType)
	assert.Equal(t, "sum", in.Aggregation)

	in = Interpret("revenue by region", s)
	assert.Empty(t, in.GroupBy)
}

func TestInterpretQueryTypesAndAggregations(t *testing.T) {
	s := salesSummary(t)
	tests := []struct {
		query string
		qt    Type
		agg   string
	}{
		{"average units by region", Aggregation, "mean"},
		{"count of orders", Aggregation, "count"},
		{"revenue versus units", Correlation, ""},
		{"only the north region", Filtering, ""},
		{"growth of revenue", Trend, ""},
		{"max revenue", General, "max"},
		{"lowest unit price", General, "min"},
		{"hello", General, ""},
	}
	for _, tt := range tests {
		in := Interpret(tt.query, s)
		assert.Equal(t, tt.qt, in.QueryType, tt.query)
		assert.Equal(t, tt.agg, in.Aggregation, tt.query)
	}
}

func TestMentions(t *testing.T) {
	s := summarize(t, table.FromRecords(
		[]string{"sales", "sales_total", "Region", "unit_price"},
		[]map[string]any{{"sales": 1, "sales_total": 2, "Region": "x", "unit_price": 3}},
	))
	assert.Equal(t, []string{"sales_total", "Region"}, Mentions("sales_total by region", s))
	assert.Equal(t, []string{"sales"}, Mentions("sales", s))
	assert.Equal(t, []string{"unit_price", "sales"}, Mentions("unit price against sales", s))
	assert.Nil(t, Mentions("", s))
	assert.Nil(t, Mentions("sales", nil))
}

func TestInterpretNilSummary(t *testing.T) {
	in := Interpret("pie chart", nil)
	assert.Equal(t, PieChart, in.ChartType)
	assert.Empty(t, in.XAxis)
	assert.Empty(t, in.ValueKey)
}

func TestInterpretNoCategoricalUsesIdentifier(t *testing.T) {
	tb := table.New([]string{"sku", "qty"})
	for i := 0; i < 20; i++ {
		tb.Append([]table.Value{table.Text(fmt.Sprintf("sku-%02d", i)), table.Number(float64(i))})
	}
	in := Interpret("", summarize(t, tb))
	assert.Equal(t, "sku", in.XAxis)
	assert.Equal(t, "qty", in.ValueKey)
}
