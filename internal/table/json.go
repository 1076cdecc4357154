package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MarshalJSON encodes the table as an array of records whose keys keep
// column order.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	keys := make([][]byte, len(t.Columns))
	for i, c := range t.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", c, err)
		}
		keys[i] = k
	}
	for ri, row := range t.Rows {
		if ri > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for ci := range t.Columns {
			if ci > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[ci])
			buf.WriteByte(':')
			var v Value
			if ci < len(row) {
				v = row[ci]
			}
			b, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of records. See DecodeRecords.
func (t *Table) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	out, err := DecodeRecords(dec)
	if err != nil {
		return err
	}
	*t = *out
	return nil
}

// DecodeRecords reads a JSON array of objects from dec. The column set is
// the union of keys in first-seen order; keys missing from a record become
// null. A JSON null decodes to an empty table.
func DecodeRecords(dec *json.Decoder) (*Table, error) {
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if tok == nil {
		return New(nil), nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("read records: expected array, got %v", tok)
	}

	index := map[string]int{}
	var columns []string
	var records []map[int]Value
	for dec.More() {
		rec, err := decodeRecord(dec, index, &columns)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	t := New(columns)
	t.Rows = make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(columns))
		for ci, v := range rec {
			row[ci] = v
		}
		t.Rows[i] = row
	}
	return t, nil
}

func decodeRecord(dec *json.Decoder, index map[string]int, columns *[]string) (map[int]Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	rec := map[int]Value{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", kt)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		ci, seen := index[key]
		if !seen {
			ci = len(*columns)
			index[key] = ci
			*columns = append(*columns, key)
		}
		rec[ci] = FromAny(raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}
