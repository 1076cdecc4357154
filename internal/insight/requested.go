package insight

import (
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/numfmt"
	"github.com/KaramelBytes/vizloom-cli/internal/query"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Notes for requests the data cannot answer.
const (
	NoCorrelationColumns = "Not enough numeric columns for correlation analysis."
	NoTrendColumns       = "No datetime columns found for trend analysis."
)

// Strength bands for a requested correlation. Unlike the ranked insights,
// a requested pair is always reported, weak or not.
const (
	requestedStrong   = 0.7
	requestedModerate = 0.3
)

// Requested answers the question type of in. A correlation request gets
// the strength of the first two mentioned numeric columns (or the first
// two numeric columns); a trend request gets the start-to-end change of
// the first mentioned numeric column, aggregated per day. Other query
// types yield nothing.
func Requested(t *table.Table, s *analysis.Summary, in query.Intent) []string {
	if s == nil {
		return nil
	}
	switch in.QueryType {
	case query.Correlation:
		return requestedCorrelation(s, in)
	case query.Trend:
		return requestedTrend(t, s, in)
	}
	return nil
}

func requestedCorrelation(s *analysis.Summary, in query.Intent) []string {
	numeric := s.NumericColumns()
	if len(numeric) < 2 {
		return []string{NoCorrelationColumns}
	}
	a, b := numeric[0], numeric[1]
	if m := in.MentionedColumns; len(m) >= 2 &&
		s.TypeOf(m[0]) == analysis.Numeric && s.TypeOf(m[1]) == analysis.Numeric {
		a, b = m[0], m[1]
	}
	r, ok := s.Correlation.Get(a, b)
	if !ok {
		return nil
	}
	strength := "weak"
	switch abs := math.Abs(r); {
	case abs > requestedStrong:
		strength = "strong"
	case abs > requestedModerate:
		strength = "moderate"
	}
	direction := "positive"
	if r < 0 {
		direction = "negative"
	}
	return []string{fmt.Sprintf("There is a %s %s correlation (%s) between %s and %s.",
		strength, direction, numfmt.Format(r, 2), a, b)}
}

func requestedTrend(t *table.Table, s *analysis.Summary, in query.Intent) []string {
	dts := s.DatetimeColumns()
	if len(dts) == 0 {
		return []string{NoTrendColumns}
	}
	target := ""
	for _, name := range in.MentionedColumns {
		if s.TypeOf(name) == analysis.Numeric {
			target = name
			break
		}
	}
	di, ni := t.Index(dts[0]), t.Index(target)
	if target == "" || di < 0 || ni < 0 {
		return nil
	}

	days := map[time.Time][]float64{}
	var first, last time.Time
	for _, row := range t.Rows {
		ts, ok := row[di].Timestamp()
		if !ok {
			continue
		}
		y, ok := row[ni].Float()
		if !ok {
			continue
		}
		day := ts.UTC().Truncate(24 * time.Hour)
		if len(days) == 0 || day.Before(first) {
			first = day
		}
		if len(days) == 0 || day.After(last) {
			last = day
		}
		days[day] = append(days[day], y)
	}
	if len(days) < 2 {
		return nil
	}
	start := aggregate(days[first], in.Aggregation)
	end := aggregate(days[last], in.Aggregation)
	pct := 0.0
	if start != 0 {
		pct = (end - start) / start * 100
	}
	switch {
	case numfmt.Round(pct, 1) == 0:
		return []string{fmt.Sprintf("%s is unchanged over the time period.", target)}
	case pct > 0:
		return []string{fmt.Sprintf("%s has increased by %s%% over the time period.", target, numfmt.Format(pct, 1))}
	}
	return []string{fmt.Sprintf("%s has decreased by %s%% over the time period.", target, numfmt.Format(math.Abs(pct), 1))}
}

// aggregate folds one day's values; an unknown or empty kind means mean.
func aggregate(xs []float64, kind string) float64 {
	switch kind {
	case "sum":
		s := 0.0
		for _, x := range xs {
			s += x
		}
		return s
	case "count":
		return float64(len(xs))
	case "max":
		m := xs[0]
		for _, x := range xs[1:] {
			m = math.Max(m, x)
		}
		return m
	case "min":
		m := xs[0]
		for _, x := range xs[1:] {
			m = math.Min(m, x)
		}
		return m
	}
	return analysis.Mean(xs)
}
