package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
	_ "modernc.org/sqlite"
)

// SQLSource describes a query against a database whose result set becomes
// the table.
type SQLSource struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
	Query  string
	// Limit caps returned rows; 0 means no cap.
	Limit int
}

// ErrUnknownDriver is returned for drivers other than sqlite and postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

// QuerySQL runs src.Query and converts its result set into a table.
func QuerySQL(ctx context.Context, src SQLSource) (*table.Table, error) {
	if strings.TrimSpace(src.Query) == "" {
		return nil, fmt.Errorf("sql source: empty query")
	}
	q := limitQuery(src.Query, src.Limit)
	switch strings.ToLower(src.Driver) {
	case "sqlite", "sqlite3":
		return querySQLite(ctx, src.DSN, q)
	case "postgres", "postgresql", "pgx":
		return queryPostgres(ctx, src.DSN, q)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, src.Driver)
}

func limitQuery(q string, limit int) string {
	q = strings.TrimRight(strings.TrimSpace(q), ";")
	if limit <= 0 {
		return q
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", q, limit)
}

func querySQLite(ctx context.Context, dsn, q string) (*table.Table, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sqlite: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows converts database/sql rows. Byte slices become text.
func scanRows(rows *sql.Rows) (*table.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	t := table.New(headerNames(cols))
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]table.Value, len(cols))
		for i, v := range dest {
			row[i] = table.FromAny(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}
