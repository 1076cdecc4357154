package pipeline

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/query"
	"github.com/KaramelBytes/vizloom-cli/internal/reduce"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Chart is a secondary visualization offered next to the main one.
type Chart struct {
	Title string          `json:"title"`
	Type  query.ChartType `json:"type"`
	Data  *table.Table    `json:"data"`
}

// AuxCharts builds a correlation heatmap when there are two or more numeric
// columns, top-10 counts for the first categorical column, and row counts
// over time for the first datetime column. The time chart has at most
// maxPoints rows.
func AuxCharts(t *table.Table, s *analysis.Summary, maxPoints int) []Chart {
	charts := []Chart{}
	if s == nil {
		return charts
	}
	if c, ok := heatmap(s); ok {
		charts = append(charts, c)
	}
	if cats := s.CategoricalColumns(); len(cats) > 0 {
		if c, ok := topCounts(s, cats[0]); ok {
			charts = append(charts, c)
		}
	}
	if dts := s.DatetimeColumns(); len(dts) > 0 {
		if c, ok := countsOverTime(t, dts[0], maxPoints); ok {
			charts = append(charts, c)
		}
	}
	return charts
}

func heatmap(s *analysis.Summary) (Chart, bool) {
	m := s.Correlation
	if m == nil || len(m.Columns) < 2 {
		return Chart{}, false
	}
	data := table.New([]string{"column1", "column2", "correlation"})
	for i, a := range m.Columns {
		for j, b := range m.Columns {
			data.Append([]table.Value{table.Text(a), table.Text(b), table.Number(m.Values[i][j])})
		}
	}
	return Chart{Title: "Correlation Heatmap", Type: query.HeatmapChart, Data: data}, true
}

func topCounts(s *analysis.Summary, name string) (Chart, bool) {
	col, ok := s.Column(name)
	if !ok || len(col.TopValues) == 0 {
		return Chart{}, false
	}
	countCol := "count"
	if name == countCol {
		countCol = "count_"
	}
	data := table.New([]string{name, countCol})
	for _, vc := range col.TopValues {
		data.Append([]table.Value{table.Text(vc.Value), table.Number(float64(vc.Count))})
	}
	return Chart{
		Title: fmt.Sprintf("Top %d %s by Count", analysis.TopValuesLimit, name),
		Type:  query.BarChart,
		Data:  data,
	}, true
}

// overTimeSteps are the bucket sizes tried for counts over time, in months.
var overTimeSteps = []struct {
	g      reduce.Granularity
	months int
}{
	{reduce.Month, 1},
	{reduce.Quarter, 3},
	{reduce.Year, 12},
}

// countsOverTime counts rows per calendar month between the first and last
// timestamp, including empty months. When that would exceed maxPoints rows
// it counts per quarter, then per year; a span too wide even for yearly
// buckets yields no chart.
func countsOverTime(t *table.Table, name string, maxPoints int) (Chart, bool) {
	var stamps []time.Time
	for _, v := range t.Column(name) {
		if ts, ok := v.Timestamp(); ok {
			stamps = append(stamps, ts.UTC())
		}
	}
	if len(stamps) == 0 {
		return Chart{}, false
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	first, last := stamps[0], stamps[0]
	for _, ts := range stamps[1:] {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}

	for _, step := range overTimeSteps {
		start := reduce.BucketStart(first, step.g)
		end := reduce.BucketStart(last, step.g)
		if (monthIndex(end)-monthIndex(start))/step.months+1 > maxPoints {
			continue
		}
		counts := map[int64]int{}
		for _, ts := range stamps {
			counts[reduce.BucketStart(ts, step.g).Unix()]++
		}
		countCol := "count"
		if name == countCol {
			countCol = "count_"
		}
		data := table.New([]string{name, countCol})
		for b := start; !b.After(end); b = b.AddDate(0, step.months, 0) {
			data.Append([]table.Value{table.Time(b), table.Number(float64(counts[b.Unix()]))})
		}
		return Chart{Title: "Counts Over Time", Type: query.LineChart, Data: data}, true
	}
	return Chart{}, false
}

func monthIndex(ts time.Time) int {
	return ts.Year()*12 + int(ts.Month()) - 1
}
