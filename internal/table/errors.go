package table

import "fmt"

// EmptyTableError indicates a table with zero rows or zero columns.
type EmptyTableError struct {
	Rows    int
	Columns int
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("empty table: %d rows, %d columns", e.Rows, e.Columns)
}

// UnsupportedFormatError indicates content that does not decode as any
// supported tabular format.
type UnsupportedFormatError struct {
	Format string
	Err    error
}

func (e *UnsupportedFormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unsupported format: %s", e.Format)
	}
	if e.Format == "" {
		return fmt.Sprintf("unsupported format: %v", e.Err)
	}
	return fmt.Sprintf("unsupported format %s: %v", e.Format, e.Err)
}

func (e *UnsupportedFormatError) Unwrap() error { return e.Err }
