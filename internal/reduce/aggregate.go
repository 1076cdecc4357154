package reduce

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

type aggregateStrategy struct{}

func (aggregateStrategy) Method() Method { return MethodAggregate }

func (aggregateStrategy) Applicable(s *analysis.Summary, _, _ int) bool {
	return len(s.CategoricalColumns()) > 0 && len(s.NumericColumns()) > 0
}

// GroupColumn picks the categorical column with the most distinct values
// that still fits maxRows, or the first categorical column when none fits.
func GroupColumn(s *analysis.Summary, maxRows int) string {
	cats := s.CategoricalColumns()
	if len(cats) == 0 {
		return ""
	}
	best, bestN := "", -1
	for _, name := range cats {
		c, _ := s.Column(name)
		if c.UniqueCount <= maxRows && c.UniqueCount > bestN {
			best, bestN = name, c.UniqueCount
		}
	}
	if best == "" {
		return cats[0]
	}
	return best
}

// Apply sums every numeric column per group, orders groups by the first
// numeric column descending (first-seen order among ties), and keeps the
// top maxRows. Output keeps the group and numeric columns in table order.
// Rows with a null group key are dropped.
func (aggregateStrategy) Apply(t *table.Table, s *analysis.Summary, maxRows int) (*table.Table, error) {
	group := GroupColumn(s, maxRows)
	gi := t.Index(group)
	if gi < 0 {
		return nil, fmt.Errorf("aggregate: group column %q absent", group)
	}
	var numIdx []int
	var cols []string
	groupPos := 0
	for ci, name := range t.Columns {
		switch {
		case ci == gi:
			groupPos = len(cols)
			cols = append(cols, name)
		case isNumeric(s, name):
			numIdx = append(numIdx, ci)
			cols = append(cols, name)
		}
	}
	if len(numIdx) == 0 {
		return nil, fmt.Errorf("aggregate: no numeric columns")
	}

	type acc struct {
		key  table.Value
		sums []float64
	}
	groups := map[string]*acc{}
	var order []*acc
	for _, row := range t.Rows {
		kv := row[gi]
		if kv.IsNull() {
			continue
		}
		k := kv.String()
		g, ok := groups[k]
		if !ok {
			g = &acc{key: kv, sums: make([]float64, len(numIdx))}
			groups[k] = g
			order = append(order, g)
		}
		for j, ci := range numIdx {
			if f, ok := row[ci].Float(); ok && !row[ci].IsNull() {
				g.sums[j] += f
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].sums[0] > order[b].sums[0] })
	if len(order) > maxRows {
		order = order[:maxRows]
	}

	out := table.New(cols)
	for _, g := range order {
		row := make([]table.Value, 0, len(cols))
		for j, sum := range g.sums {
			if j == groupPos {
				row = append(row, g.key)
			}
			row = append(row, table.Number(sum))
		}
		if groupPos == len(g.sums) {
			row = append(row, g.key)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
