// Package query maps a free-text visualization request and a table schema
// to a structured chart intent using fixed keyword vocabularies.
package query

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
)

// ChartType is a chart family understood by the front end.
type ChartType string

const (
	BarChart     ChartType = "BarChart"
	LineChart    ChartType = "LineChart"
	PieChart     ChartType = "PieChart"
	ScatterChart ChartType = "ScatterChart"
	AreaChart    ChartType = "AreaChart"
	HeatmapChart ChartType = "HeatmapChart"
)

// Type classifies what the request asks of the data.
type Type string

const (
	Aggregation Type = "aggregation"
	Correlation Type = "correlation"
	Filtering   Type = "filtering"
	Trend       Type = "trend"
	General     Type = "general"
)

// PieMaxSlices is the most distinct x values a "distribution" request may
// have before it is drawn as bars instead of a pie.
const PieMaxSlices = 8

// Intent is the structured reading of a request.
type Intent struct {
	ChartType        ChartType `json:"chart_type"`
	XAxis            string    `json:"x_axis"`
	ValueKey         string    `json:"value_key"`
	GroupBy          string    `json:"group_by,omitempty"`
	QueryType        Type      `json:"query_type"`
	Aggregation      string    `json:"aggregation,omitempty"`
	MentionedColumns []string  `json:"mentioned_columns"`
	// Defaulted is set when nothing in the request matched a vocabulary
	// or a column name.
	Defaulted bool `json:"defaulted"`
}

type phraseRule[T any] struct {
	phrases []string
	result  T
}

var explicitCharts = []phraseRule[ChartType]{
	{[]string{"bar chart", "bar graph", "column chart"}, BarChart},
	{[]string{"line chart", "line graph"}, LineChart},
	{[]string{"area chart", "area graph"}, AreaChart},
	{[]string{"scatter", "scatter plot", "scatterplot"}, ScatterChart},
	{[]string{"pie", "pie chart", "pie graph"}, PieChart},
}

var (
	trendWords        = []string{"trend", "trends", "over time", "time series", "timeseries", "growth"}
	correlationWords  = []string{"correlation", "correlate", "correlated", "compare", "relationship", "versus", "vs", "against"}
	distributionWords = []string{"distribution", "breakdown", "share"}
	groupingWords     = []string{"group by", "grouped by", "per", "for each"}
)

var queryTypes = []phraseRule[Type]{
	{[]string{"average", "mean", "sum", "total", "count", "aggregate", "group by"}, Aggregation},
	{correlationWords, Correlation},
	{[]string{"filter", "where", "only", "exclude"}, Filtering},
	{trendWords, Trend},
}

var aggregations = []phraseRule[string]{
	{[]string{"average", "mean", "avg"}, "mean"},
	{[]string{"sum", "total"}, "sum"},
	{[]string{"count", "number of"}, "count"},
	{[]string{"maximum", "max", "highest"}, "max"},
	{[]string{"minimum", "min", "lowest"}, "min"},
}

// request is a case-folded query in two views: the raw folded text for
// column substring search and a space-delimited word stream for phrase
// matching on word boundaries.
type request struct {
	folded string
	words  string
}

func newRequest(text string) request {
	folded := cases.Fold().String(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return request{folded: folded, words: " " + strings.Join(fields, " ") + " "}
}

func (r request) has(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(r.words, " "+p+" ") {
			return true
		}
	}
	return false
}

func match[T any](r request, rules []phraseRule[T]) (T, bool) {
	for _, rule := range rules {
		if r.has(rule.phrases...) {
			return rule.result, true
		}
	}
	var zero T
	return zero, false
}

// Interpret reads text against the schema in s. It is deterministic and
// never fails: unmatched requests yield a BarChart default.
func Interpret(text string, s *analysis.Summary) Intent {
	req := newRequest(text)
	mentioned := Mentions(req.folded, s)
	in := Intent{QueryType: General, MentionedColumns: mentioned}
	if in.MentionedColumns == nil {
		in.MentionedColumns = []string{}
	}
	matched := len(mentioned) > 0

	if qt, ok := match(req, queryTypes); ok {
		in.QueryType = qt
		matched = true
	}
	if agg, ok := match(req, aggregations); ok {
		in.Aggregation = agg
		matched = true
	}

	mentionedNumeric := filterType(s, mentioned, analysis.Numeric)
	numeric := s.NumericColumns()

	chart, chartFound := match(req, explicitCharts)
	distribution := false
	if !chartFound {
		switch {
		case req.has(trendWords...):
			chart, chartFound = LineChart, true
		case req.has(correlationWords...) &&
			(len(mentionedNumeric) >= 2 || (len(mentioned) == 0 && len(numeric) >= 2)):
			chart, chartFound = ScatterChart, true
		case req.has(distributionWords...):
			distribution, chartFound = true, true
		}
	}
	if chartFound {
		matched = true
	}
	if chart == "" {
		chart = BarChart
	}

	if chart == ScatterChart && len(numeric) >= 2 {
		pair := append(append([]string{}, mentionedNumeric...), numeric...)
		in.XAxis = pair[0]
		in.ValueKey = firstOther(pair, in.XAxis)
	} else {
		in.XAxis = pickX(s, mentioned, chart)
		in.ValueKey = firstOther(append(append([]string{}, mentionedNumeric...), numeric...), in.XAxis)
	}
	if in.XAxis == "" && s != nil {
		for _, c := range s.Columns {
			if c.Name != in.ValueKey {
				in.XAxis = c.Name
				break
			}
		}
	}

	if distribution {
		chart = BarChart
		if c, ok := s.Column(in.XAxis); ok && c.UniqueCount <= PieMaxSlices {
			chart = PieChart
		}
	}
	in.ChartType = chart

	if req.has(groupingWords...) || s.TypeOf(in.XAxis) == analysis.Datetime {
		for _, name := range filterType(s, mentioned, analysis.Categorical) {
			if name != in.XAxis {
				in.GroupBy = name
				break
			}
		}
	}

	in.Defaulted = !matched
	return in
}

// pickX chooses the x-axis: line and area charts prefer a datetime column;
// otherwise the first mentioned categorical or datetime column, then the
// first such column in schema order, then the first identifier.
func pickX(s *analysis.Summary, mentioned []string, chart ChartType) string {
	if chart == LineChart || chart == AreaChart {
		if dt := filterType(s, mentioned, analysis.Datetime); len(dt) > 0 {
			return dt[0]
		}
		if dt := s.DatetimeColumns(); len(dt) > 0 {
			return dt[0]
		}
	}
	for _, name := range mentioned {
		if t := s.TypeOf(name); t == analysis.Categorical || t == analysis.Datetime {
			return name
		}
	}
	if s == nil {
		return ""
	}
	for _, c := range s.Columns {
		if c.Type == analysis.Categorical || c.Type == analysis.Datetime {
			return c.Name
		}
	}
	if ids := s.IdentifierColumns(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// Mentions returns the columns whose names occur in the folded query,
// ordered by position. Longer names claim their span first, so "sales"
// is not reported inside "sales_total". Underscores and hyphens in names
// also match spaces.
func Mentions(folded string, s *analysis.Summary) []string {
	if s == nil || strings.TrimSpace(folded) == "" {
		return nil
	}
	type span struct{ start, end int }
	type hit struct {
		name string
		pos  int
	}
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if strings.TrimSpace(c.Name) != "" {
			names = append(names, c.Name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	fold := cases.Fold()
	spaced := strings.NewReplacer("_", " ", "-", " ")
	var claimed []span
	var hits []hit
	overlaps := func(a span) bool {
		for _, b := range claimed {
			if a.start < b.end && b.start < a.end {
				return true
			}
		}
		return false
	}
	for _, name := range names {
		fn := fold.String(name)
		found := false
		for _, needle := range uniqueStrings(fn, spaced.Replace(fn)) {
			if strings.TrimSpace(needle) == "" {
				continue
			}
			for off := 0; off <= len(folded)-len(needle) && !found; {
				i := strings.Index(folded[off:], needle)
				if i < 0 {
					break
				}
				sp := span{off + i, off + i + len(needle)}
				if !overlaps(sp) {
					claimed = append(claimed, sp)
					hits = append(hits, hit{name, sp.start})
					found = true
				}
				off += i + 1
			}
			if found {
				break
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func uniqueStrings(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}

func filterType(s *analysis.Summary, names []string, ct analysis.ColumnType) []string {
	var out []string
	for _, n := range names {
		if s.TypeOf(n) == ct {
			out = append(out, n)
		}
	}
	return out
}

func firstOther(names []string, not string) string {
	for _, n := range names {
		if n != not {
			return n
		}
	}
	return ""
}
