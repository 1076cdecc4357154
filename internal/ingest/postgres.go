package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

func queryPostgres(ctx context.Context, dsn, q string) (*table.Table, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query postgres: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	t := table.New(headerNames(names))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make([]table.Value, len(fields))
		for i := range row {
			if i < len(values) {
				row[i] = pgValue(values[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}

// pgValue maps the Go values pgx decodes into table values. Numeric and
// UUID columns need explicit handling; the rest go through table.FromAny.
func pgValue(x any) table.Value {
	switch v := x.(type) {
	case pgtype.Numeric:
		if !v.Valid || v.NaN {
			return table.Null()
		}
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return table.Null()
		}
		return table.Number(f.Float64)
	case [16]byte:
		return table.Text(uuid.UUID(v).String())
	case pgtype.Date:
		if !v.Valid {
			return table.Null()
		}
		return table.Time(v.Time)
	case pgtype.Interval:
		if !v.Valid {
			return table.Null()
		}
		return table.Text(fmt.Sprintf("%d months %d days %dus", v.Months, v.Days, v.Microseconds))
	}
	return table.FromAny(x)
}
