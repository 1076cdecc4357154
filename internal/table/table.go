// Package table holds the in-memory tabular model shared by the pipeline:
// an ordered column set and rows of tagged values aligned to it.
package table

// Table is an ordered sequence of rows sharing one fixed column set.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// New returns an empty table with the given columns.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds a row, padding with nulls or truncating to the column count.
func (t *Table) Append(row []Value) {
	n := len(t.Columns)
	if len(row) != n {
		fixed := make([]Value, n)
		copy(fixed, row)
		row = fixed
	}
	t.Rows = append(t.Rows, row)
}

// Column returns the values of the named column in row order, or nil.
func (t *Table) Column(name string) []Value {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Pick returns a new table holding the rows at the given indices, in order.
// Rows are shared with the receiver, not copied.
func (t *Table) Pick(indices []int) *Table {
	out := New(t.Columns)
	out.Rows = make([][]Value, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(t.Rows) {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}
	return out
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	out := New(t.Columns)
	out.Rows = t.Rows[:n:n]
	return out
}

// Get returns the cell at row i for the named column, or null.
func (t *Table) Get(i int, name string) Value {
	idx := t.Index(name)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][idx]
}

// FromRecords builds a table from maps. Columns follow the order given;
// keys absent from a record become null.
func FromRecords(columns []string, records []map[string]any) *Table {
	t := New(columns)
	for _, rec := range records {
		row := make([]Value, len(columns))
		for i, c := range columns {
			row[i] = FromAny(rec[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CheckNotEmpty returns an *EmptyTableError when t has no rows or no columns.
func CheckNotEmpty(t *Table) error {
	if t.Len() == 0 || t.Width() == 0 {
		return &EmptyTableError{Rows: t.Len(), Columns: t.Width()}
	}
	return nil
}
