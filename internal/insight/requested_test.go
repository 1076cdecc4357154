package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/query"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

func requested(t *testing.T, tb *table.Table, in query.Intent) []string {
	t.Helper()
	s, err := analysis.Inspect(tb)
	require.NoError(t, err)
	return Requested(tb, s, in)
}

func TestRequestedCorrelationReportsWeakPairs(t *testing.T) {
	tb := table.New([]string{"x", "y"})
	for i, y := range []float64{1, -1, 1, -1, 1, -1} {
		tb.Append([]table.Value{table.Number(float64(i + 1)), table.Number(y)})
	}

	got := requested(t, tb, query.Intent{QueryType: query.Correlation})
	assert.Equal(t, []string{"There is a weak negative correlation (-0.29) between x and y."}, got)

	// Below the ranked-insight threshold, so Generate stays silent on it.
	for _, line := range generate(t, tb, DefaultOptions()) {
		assert.NotContains(t, line, "correlation")
	}

	got = requested(t, tb, query.Intent{QueryType: query.Correlation, MentionedColumns: []string{"y", "x"}})
	assert.Equal(t, []string{"There is a weak negative correlation (-0.29) between y and x."}, got)
}

func TestRequestedCorrelationNeedsTwoNumericColumns(t *testing.T) {
	tb := table.FromRecords([]string{"k", "v"}, []map[string]any{{"k": "a", "v": 1}, {"k": "b", "v": 2}})
	assert.Equal(t, []string{NoCorrelationColumns}, requested(t, tb, query.Intent{QueryType: query.Correlation}))
}

func TestRequestedTrend(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tb := table.New([]string{"at", "v", "label"})
	tb.Append([]table.Value{table.Time(d1), table.Number(10), table.Text("a")})
	tb.Append([]table.Value{table.Time(d1.Add(6 * time.Hour)), table.Number(20), table.Text("b")})
	tb.Append([]table.Value{table.Time(d1.AddDate(0, 0, 2)), table.Number(15), table.Text("a")})

	tests := []struct {
		agg  string
		want string
	}{
		{"", "v is unchanged over the time period."},
		{"sum", "v has decreased by 50% over the time period."},
		{"max", "v has decreased by 25% over the time period."},
		{"min", "v has increased by 50% over the time period."},
		{"count", "v has decreased by 50% over the time period."},
	}
	for _, tt := range tests {
		t.Run("agg="+tt.agg, func(t *testing.T) {
			in := query.Intent{QueryType: query.Trend, Aggregation: tt.agg, MentionedColumns: []string{"label", "v"}}
			assert.Equal(t, []string{tt.want}, requested(t, tb, in))
		})
	}

	assert.Empty(t, requested(t, tb, query.Intent{QueryType: query.Trend, MentionedColumns: []string{"label"}}))
	assert.Empty(t, requested(t, tb, query.Intent{QueryType: query.General, MentionedColumns: []string{"v"}}))
}

func TestRequestedTrendNeedsDatetime(t *testing.T) {
	tb := table.FromRecords([]string{"k", "v"}, []map[string]any{{"k": "a", "v": 1}, {"k": "b", "v": 2}})
	assert.Equal(t, []string{NoTrendColumns}, requested(t, tb, query.Intent{QueryType: query.Trend}))
}
