// Package analysis profiles tables: column type inference, per-column
// statistics, and the pairwise correlation matrix over numeric columns.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// ColumnType is the inferred role of a column.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Datetime    ColumnType = "datetime"
	Identifier  ColumnType = "identifier"
)

const (
	// TopValuesLimit caps ColumnProfile.TopValues.
	TopValuesLimit = 10
	// SampleValuesLimit caps ColumnProfile.SampleValues.
	SampleValuesLimit = 5
	// IdentifierRatio is the unique/row ratio above which a non-numeric,
	// non-temporal column is treated as an identifier.
	IdentifierRatio = 0.9
	// IdentifierMinValues is the fewest non-null values an identifier needs.
	IdentifierMinValues = 10
)

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile describes one column. Numeric statistics are set only for
// numeric columns with at least one value; Std needs two.
type ColumnProfile struct {
	Name         string        `json:"name"`
	Type         ColumnType    `json:"type"`
	UniqueCount  int           `json:"unique_count"`
	NullCount    int           `json:"null_count"`
	Min          *float64      `json:"min,omitempty"`
	Max          *float64      `json:"max,omitempty"`
	Mean         *float64      `json:"mean,omitempty"`
	Median       *float64      `json:"median,omitempty"`
	Std          *float64      `json:"std,omitempty"`
	TopValues    []ValueCount  `json:"top_values,omitempty"`
	Earliest     string        `json:"earliest,omitempty"`
	Latest       string        `json:"latest,omitempty"`
	SampleValues []table.Value `json:"sample_values"`
}

// Summary is the schema and statistics of a table.
type Summary struct {
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnProfile `json:"columns"`
	Correlation *CorrMatrix     `json:"correlation_matrix"`
}

// CorrMatrix is a symmetric Pearson matrix over numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Get returns r for the named pair.
func (m *CorrMatrix) Get(a, b string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// MarshalJSON writes the matrix as {"a": {"a": 1, "b": r}, ...} keeping
// column order.
func (m CorrMatrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range m.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		ka, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(ka)
		buf.WriteString(":{")
		for j, b := range m.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(b)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			v, err := json.Marshal(m.Values[i][j])
			if err != nil {
				return nil, fmt.Errorf("correlation %s~%s: %w", a, b, err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Column returns the profile with the given name.
func (s *Summary) Column(name string) (*ColumnProfile, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the names of columns of the given type in table order.
func (s *Summary) Names(ct ColumnType) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, c := range s.Columns {
		if c.Type == ct {
			out = append(out, c.Name)
		}
	}
	return out
}

func (s *Summary) NumericColumns() []string     { return s.Names(Numeric) }
func (s *Summary) CategoricalColumns() []string { return s.Names(Categorical) }
func (s *Summary) DatetimeColumns() []string    { return s.Names(Datetime) }
func (s *Summary) IdentifierColumns() []string  { return s.Names(Identifier) }

// TypeOf returns the inferred type of the named column, or "".
func (s *Summary) TypeOf(name string) ColumnType {
	if c, ok := s.Column(name); ok {
		return c.Type
	}
	return ""
}

// Inspect profiles every column of t and computes the correlation matrix.
// It returns *table.EmptyTableError for tables without rows or columns.
func Inspect(t *table.Table) (*Summary, error) {
	if err := table.CheckNotEmpty(t); err != nil {
		return nil, err
	}
	s := &Summary{RowCount: t.Len(), ColumnCount: t.Width()}
	numeric := map[string][]float64{}
	valid := map[string][]bool{}
	for ci, name := range t.Columns {
		vals := make([]table.Value, t.Len())
		for ri, row := range t.Rows {
			vals[ri] = row[ci]
		}
		p := profileColumn(name, vals, t.Len())
		if p.Type == Numeric {
			numeric[name], valid[name] = Floats(vals)
		}
		s.Columns = append(s.Columns, p)
	}
	if names := s.NumericColumns(); len(names) > 0 {
		s.Correlation = correlate(names, numeric, valid)
	}
	return s, nil
}

func profileColumn(name string, vals []table.Value, rowCount int) ColumnProfile {
	p := ColumnProfile{Name: name, SampleValues: []table.Value{}}
	counts := map[string]int{}
	var order []string
	allNumeric := true
	nonNull := 0
	for _, v := range vals {
		if v.IsNull() {
			p.NullCount++
			continue
		}
		nonNull++
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			if len(p.SampleValues) < SampleValuesLimit {
				p.SampleValues = append(p.SampleValues, v)
			}
		}
		counts[key]++
		if allNumeric {
			if _, ok := v.Float(); !ok {
				allNumeric = false
			}
		}
	}
	p.UniqueCount = len(order)

	switch {
	case nonNull == 0:
		p.Type = Categorical
	case allNumeric:
		p.Type = Numeric
		numericStats(&p, vals)
	case timeColumn(vals):
		p.Type = Datetime
		timeRange(&p, vals)
	case rowCount > 0 && float64(p.UniqueCount)/float64(rowCount) > IdentifierRatio && nonNull >= IdentifierMinValues:
		p.Type = Identifier
	default:
		p.Type = Categorical
		p.TopValues = topValues(order, counts, TopValuesLimit)
	}
	return p
}

// timeColumn reports whether every non-null value parses as a datetime.
func timeColumn(vals []table.Value) bool {
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		if _, ok := v.Timestamp(); !ok {
			return false
		}
	}
	return true
}

func numericStats(p *ColumnProfile, vals []table.Value) {
	xs := Present(Floats(vals))
	if len(xs) == 0 {
		return
	}
	var w welford
	for _, x := range xs {
		w.add(x)
	}
	mn, mx, mean, med := w.min, w.max, w.mean, Median(xs)
	p.Min, p.Max, p.Mean, p.Median = &mn, &mx, &mean, &med
	if w.n >= 2 {
		sd := math.Sqrt(w.variance())
		p.Std = &sd
	}
}

func timeRange(p *ColumnProfile, vals []table.Value) {
	var lo, hi time.Time
	first := true
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		ts, ok := v.Timestamp()
		if !ok {
			continue
		}
		if first || ts.Before(lo) {
			lo = ts
		}
		if first || ts.After(hi) {
			hi = ts
		}
		first = false
	}
	if !first {
		p.Earliest = table.Time(lo).String()
		p.Latest = table.Time(hi).String()
	}
}

// topValues orders keys by count, keeping first-seen order among ties.
func topValues(order []string, counts map[string]int, limit int) []ValueCount {
	out := make([]ValueCount, len(order))
	for i, k := range order {
		out[i] = ValueCount{Value: k, Count: counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func correlate(names []string, xs map[string][]float64, ok map[string][]bool) *CorrMatrix {
	n := len(names)
	m := &CorrMatrix{Columns: names, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := names[i], names[j]
			r := Pearson(xs[a], xs[b], ok[a], ok[b])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}
