package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

type jsonDecoder struct{}

func (jsonDecoder) Format() string { return "json" }

func (jsonDecoder) CanDecode(filename, contentType string) bool {
	if hasExt(filename, ".json") {
		return true
	}
	ct := mediaType(contentType)
	return ct == "application/json" || ct == "text/json"
}

// Decode accepts an array of records, a column object whose keys map to
// equal-length arrays of scalars, an object wrapping a records array
// (under "data" or, failing that, the first array-valued key in sorted
// order), or a single record object.
func (jsonDecoder) Decode(r io.Reader) (*table.Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return table.New(nil), nil
	}
	switch b[0] {
	case '[':
		return decodeArray(b)
	case '{':
		return decodeObject(b)
	}
	return nil, &table.UnsupportedFormatError{Format: "json", Err: fmt.Errorf("expected array or object")}
}

func decodeArray(b []byte) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	t, err := table.DecodeRecords(dec)
	if err != nil {
		return nil, &table.UnsupportedFormatError{Format: "json", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &table.UnsupportedFormatError{Format: "json", Err: errTrailingData}
	}
	return t, nil
}

var errTrailingData = errors.New("unexpected data after top-level value")

// decodeColumns reads {"col": [v0, v1, ...], ...}. ok is false when b is
// not column-shaped: a key repeats, a value is not an array, an array
// holds an object or array, or the arrays differ in length.
func decodeColumns(b []byte) (t *table.Table, ok bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, false, err
	}
	var names []string
	var cols [][]any
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, false, err
		}
		key, _ := kt.(string)
		if slices.Contains(names, key) {
			return nil, false, nil
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false, err
		}
		if !isArray(raw) {
			return nil, false, nil
		}
		inner := json.NewDecoder(bytes.NewReader(raw))
		inner.UseNumber()
		var cells []any
		if err := inner.Decode(&cells); err != nil {
			return nil, false, err
		}
		for _, c := range cells {
			switch c.(type) {
			case map[string]any, []any:
				return nil, false, nil
			}
		}
		if len(cols) > 0 && len(cells) != len(cols[0]) {
			return nil, false, nil
		}
		names = append(names, key)
		cols = append(cols, cells)
	}
	if len(names) == 0 {
		return nil, false, nil
	}
	t = table.New(names)
	for i := range cols[0] {
		row := make([]table.Value, len(cols))
		for ci := range cols {
			row[ci] = table.FromAny(cols[ci][i])
		}
		t.Append(row)
	}
	return t, true, nil
}

func decodeObject(b []byte) (*table.Table, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, &table.UnsupportedFormatError{Format: "json", Err: err}
	}
	if t, ok, err := decodeColumns(b); err != nil {
		return nil, &table.UnsupportedFormatError{Format: "json", Err: err}
	} else if ok {
		return t, nil
	}
	if raw, ok := obj["data"]; ok && isArray(raw) {
		return decodeArray(raw)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isArray(obj[k]) {
			return decodeArray(obj[k])
		}
	}
	// A lone record: wrap it so key order is preserved by the token decoder.
	wrapped := make([]byte, 0, len(b)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, b...)
	wrapped = append(wrapped, ']')
	return decodeArray(wrapped)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
