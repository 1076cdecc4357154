// Package insight derives short natural-language observations from a table
// and its summary: correlations, trends, outliers, and summary statistics.
package insight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/numfmt"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Options holds the thresholds each tier uses.
type Options struct {
	MaxInsights          int
	CorrelationThreshold float64
	StrongCorrelation    float64
	TrendThreshold       float64
	OutlierSigma         float64
	// MaxNumericSummaries is the most numeric columns for which per-column
	// min/max/mean lines are emitted.
	MaxNumericSummaries int
}

func DefaultOptions() Options {
	return Options{
		MaxInsights:          10,
		CorrelationThreshold: 0.6,
		StrongCorrelation:    0.8,
		TrendThreshold:       0.1,
		OutlierSigma:         3,
		MaxNumericSummaries:  5,
	}
}

// Generate returns insights ordered correlation, trend, outlier, summary,
// capped at MaxInsights. The dataset-size line is always included and
// takes the last slot. A nil summary is computed from t; an empty table
// yields no insights.
func Generate(t *table.Table, s *analysis.Summary, opts Options) []string {
	if s == nil {
		var err error
		if s, err = analysis.Inspect(t); err != nil {
			return nil
		}
	}
	limit := opts.MaxInsights
	if limit < 1 {
		limit = 1
	}

	var ranked []string
	ranked = append(ranked, correlations(s, opts)...)
	ranked = append(ranked, trends(t, s, opts)...)
	ranked = append(ranked, outliers(t, s, opts)...)
	ranked = append(ranked, summaries(t, s, opts)...)

	if len(ranked) > limit-1 {
		ranked = ranked[:limit-1]
	}
	return append(ranked, fmt.Sprintf("Dataset has %d rows and %d columns.", s.RowCount, s.ColumnCount))
}

func correlations(s *analysis.Summary, opts Options) []string {
	var out []string
	for _, p := range analysis.TopPairs(s.Correlation, 0) {
		r := math.Abs(p.R)
		if r <= opts.CorrelationThreshold {
			continue
		}
		strength := "moderate"
		if r > opts.StrongCorrelation {
			strength = "strong"
		}
		direction := "positive"
		if p.R < 0 {
			direction = "negative"
		}
		out = append(out, fmt.Sprintf("There is a %s %s correlation (%s) between %s and %s.",
			strength, direction, numfmt.Format(p.R, 2), p.A, p.B))
	}
	return out
}

type trendHit struct {
	text string
	mag  float64
}

// trends fits value against elapsed days for every datetime/numeric pair.
// The relative change is slope * span / |mean|.
func trends(t *table.Table, s *analysis.Summary, opts Options) []string {
	var hits []trendHit
	for _, dt := range s.DatetimeColumns() {
		di := t.Index(dt)
		if di < 0 {
			continue
		}
		for _, num := range s.NumericColumns() {
			ni := t.Index(num)
			if ni < 0 {
				continue
			}
			rel, ok := relativeChange(t, di, ni)
			if !ok || math.Abs(rel) <= opts.TrendThreshold {
				continue
			}
			dir := "an increasing"
			if rel < 0 {
				dir = "a decreasing"
			}
			hits = append(hits, trendHit{
				text: fmt.Sprintf("%s shows %s trend over %s (%s change across the period).", num, dir, dt, signedPercent(rel)),
				mag:  math.Abs(rel),
			})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].mag > hits[j].mag })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

func relativeChange(t *table.Table, di, ni int) (float64, bool) {
	type point struct {
		at time.Time
		y  float64
	}
	var pts []point
	for _, row := range t.Rows {
		if row[di].IsNull() || row[ni].IsNull() {
			continue
		}
		ts, ok := row[di].Timestamp()
		if !ok {
			continue
		}
		y, ok := row[ni].Float()
		if !ok {
			continue
		}
		pts = append(pts, point{ts, y})
	}
	if len(pts) < 2 {
		return 0, false
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].at.Before(pts[j].at) })
	t0 := pts[0].at
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.at.Sub(t0).Hours() / 24
		ys[i] = p.y
	}
	span := xs[len(xs)-1] - xs[0]
	mean := analysis.Mean(ys)
	if span == 0 || numfmt.Clean(mean) == 0 {
		return 0, false
	}
	slope, _ := analysis.LinearFit(xs, ys)
	return slope * span / math.Abs(mean), true
}

func signedPercent(rel float64) string {
	if rel > 0 {
		return "+" + numfmt.Percent(rel)
	}
	return "-" + numfmt.Percent(-rel)
}

func outliers(t *table.Table, s *analysis.Summary, opts Options) []string {
	var out []string
	for _, name := range s.NumericColumns() {
		xs := analysis.Present(analysis.Floats(t.Column(name)))
		if len(xs) < 3 {
			continue
		}
		mean, sd := analysis.Mean(xs), analysis.StdDev(xs)
		if sd == 0 {
			continue
		}
		n := 0
		for _, x := range xs {
			if math.Abs(x-mean) > opts.OutlierSigma*sd {
				n++
			}
		}
		if n == 0 {
			continue
		}
		noun := "outliers"
		if n == 1 {
			noun = "outlier"
		}
		out = append(out, fmt.Sprintf("%s has %d %s beyond %s standard deviations from the mean (%s of values).",
			name, n, noun, numfmt.Format(opts.OutlierSigma, 1), numfmt.Percent(float64(n)/float64(len(xs)))))
	}
	return out
}

func summaries(t *table.Table, s *analysis.Summary, opts Options) []string {
	var out []string

	missing := 0
	for _, c := range s.Columns {
		missing += c.NullCount
	}
	if cells := s.RowCount * s.ColumnCount; missing > 0 && cells > 0 {
		out = append(out, fmt.Sprintf("Dataset contains %d missing values (%s of all cells).",
			missing, numfmt.Percent(float64(missing)/float64(cells))))
	}

	numeric := s.NumericColumns()
	if len(numeric) > 0 {
		best, bestV := "", -1.0
		for _, name := range numeric {
			v := analysis.Variance(analysis.Present(analysis.Floats(t.Column(name))))
			if v > bestV {
				best, bestV = name, v
			}
		}
		out = append(out, fmt.Sprintf("%s has the highest variance among numeric columns.", best))
	}

	if cats := s.CategoricalColumns(); len(cats) > 0 {
		best, bestN := "", -1
		for _, name := range cats {
			c, _ := s.Column(name)
			if c.UniqueCount > bestN {
				best, bestN = name, c.UniqueCount
			}
		}
		out = append(out, fmt.Sprintf("%s has the most unique values (%d) among categorical columns.", best, bestN))
	}

	if len(numeric) <= opts.MaxNumericSummaries {
		for _, name := range numeric {
			c, _ := s.Column(name)
			if c.Min == nil {
				continue
			}
			out = append(out, fmt.Sprintf("%s: min %s, max %s, mean %s.",
				name, numfmt.Format(*c.Min, 2), numfmt.Format(*c.Max, 2), numfmt.Format(*c.Mean, 2)))
		}
	}
	return out
}
