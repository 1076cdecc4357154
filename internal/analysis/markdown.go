package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/numfmt"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Report bundles a summary with presentation context for Markdown output.
type Report struct {
	Name    string
	Summary *Summary
	// Head, when set, is rendered as a sample-rows table.
	Head  *table.Table
	Notes []string
}

// Markdown renders a compact report suitable for prompts or terminals.
func (r *Report) Markdown() string {
	var b strings.Builder
	s := r.Summary
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	if s != nil {
		fmt.Fprintf(&b, "Rows: %d\n", s.RowCount)
		fmt.Fprintf(&b, "Columns: %d\n", s.ColumnCount)
	}
	b.WriteString("\n[SCHEMA]\n")
	if s != nil {
		for _, c := range s.Columns {
			writeColumn(&b, c, s.RowCount)
		}
	}

	if s != nil && s.Correlation != nil && len(s.Correlation.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range TopPairs(s.Correlation, 10) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%s\n", p.A, p.B, numfmt.Format(p.R, 3))
		}
	}

	if r.Head != nil && r.Head.Len() > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		writeHead(&b, r.Head)
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeColumn(b *strings.Builder, c ColumnProfile, rows int) {
	missPct := 0.0
	if rows > 0 {
		missPct = float64(c.NullCount) / float64(rows)
	}
	fmt.Fprintf(b, "- %s: %s (unique %d, missing %s)", safeName(c.Name), c.Type, c.UniqueCount, numfmt.Percent(missPct))
	switch c.Type {
	case Numeric:
		if c.Min != nil {
			fmt.Fprintf(b, ", min %s, max %s, mean %s, median %s",
				numfmt.Format(*c.Min, 4), numfmt.Format(*c.Max, 4), numfmt.Format(*c.Mean, 4), numfmt.Format(*c.Median, 4))
		}
		if c.Std != nil {
			fmt.Fprintf(b, ", std %s", numfmt.Format(*c.Std, 4))
		}
	case Categorical:
		if len(c.TopValues) > 0 {
			b.WriteString(", top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
		}
	case Datetime:
		if c.Earliest != "" {
			fmt.Fprintf(b, ", from %s to %s", c.Earliest, c.Latest)
		}
	case Identifier:
		if len(c.SampleValues) > 0 {
			b.WriteString(", e.g. ")
			for i, v := range c.SampleValues {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(v.String()))
			}
		}
	}
	b.WriteString("\n")
}

func writeHead(b *strings.Builder, t *table.Table) {
	b.WriteString("| ")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(safeName(c)))
	}
	b.WriteString(" |\n|")
	for range t.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString("| ")
		for i := range t.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := row[i].String()
			if f, ok := row[i].Float(); ok && row[i].Kind() == table.KindNumber {
				val = numfmt.Format(f, 4)
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

// Pair is one off-diagonal correlation entry.
type Pair struct {
	A, B string
	R    float64
}

// TopPairs lists each unordered pair once, strongest |r| first. Ties keep
// matrix order. limit <= 0 returns every pair.
func TopPairs(m *CorrMatrix, limit int) []Pair {
	if m == nil {
		return nil
	}
	var pairs []Pair
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
