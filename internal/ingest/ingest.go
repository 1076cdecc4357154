// Package ingest decodes raw tabular content (CSV, JSON, XLSX, SQL result
// sets) into a table.Table.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Decoder turns one content format into a table.
type Decoder interface {
	Format() string
	CanDecode(filename, contentType string) bool
	Decode(r io.Reader) (*table.Table, error)
}

var registry []Decoder

// Register adds a decoder. Later registrations do not shadow earlier ones.
func Register(d Decoder) {
	registry = append(registry, d)
}

func init() {
	Register(csvDecoder{})
	Register(jsonDecoder{})
	Register(xlsxDecoder{})
}

// Formats lists the registered format names in registration order.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for _, d := range registry {
		out = append(out, d.Format())
	}
	return out
}

// ByFormat returns the decoder registered under name ("csv", "json", "xlsx").
func ByFormat(name string) (Decoder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range registry {
		if d.Format() == name {
			return d, nil
		}
	}
	return nil, &table.UnsupportedFormatError{Format: name}
}

// Detect picks a decoder from the file name or content type.
func Detect(filename, contentType string) (Decoder, error) {
	for _, d := range registry {
		if d.CanDecode(filename, contentType) {
			return d, nil
		}
	}
	label := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if label == "" {
		label = contentType
	}
	return nil, &table.UnsupportedFormatError{Format: label}
}

// Sniff guesses the format from content alone: a leading '[' or '{' is JSON,
// a ZIP signature is XLSX, anything else is CSV.
func Sniff(b []byte) Decoder {
	trimmed := bytes.TrimLeft(b, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(b, []byte("PK\x03\x04")):
		return xlsxDecoder{}
	case len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{'):
		return jsonDecoder{}
	}
	return csvDecoder{}
}

// Decode reads content, choosing the decoder by name/type first and by
// sniffing the bytes when neither is recognised.
func Decode(filename, contentType string, r io.Reader) (*table.Table, error) {
	d, err := Detect(filename, contentType)
	if err == nil {
		return d.Decode(r)
	}
	var unsupported *table.UnsupportedFormatError
	if !errors.As(err, &unsupported) || filepath.Ext(filename) != "" {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Sniff(b).Decode(bytes.NewReader(b))
}

// DecodeFile decodes the file at path, choosing the format by extension.
func DecodeFile(path string) (*table.Table, error) {
	d, err := Detect(path, "")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return d.Decode(f)
}

func hasExt(filename string, exts ...string) bool {
	name := strings.ToLower(filename)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func mediaType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// headerNames cleans a header row: blanks get positional names and
// duplicates get a numeric suffix.
func headerNames(raw []string) []string {
	seen := map[string]int{}
	out := make([]string, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// cellValue types a raw text cell: blank is null, numeric text is a number,
// everything else stays text for the inspector to classify.
func cellValue(s string) table.Value {
	v := strings.TrimSpace(s)
	if v == "" {
		return table.Null()
	}
	if f, ok := table.ParseNumber(v); ok {
		return table.Number(f)
	}
	return table.Text(v)
}
