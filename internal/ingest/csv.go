package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

type csvDecoder struct {
	// Comma overrides delimiter sniffing when non-zero.
	Comma rune
}

// NewCSVDecoder returns a CSV decoder with a fixed delimiter. Zero sniffs.
func NewCSVDecoder(comma rune) Decoder { return csvDecoder{Comma: comma} }

func (csvDecoder) Format() string { return "csv" }

func (csvDecoder) CanDecode(filename, contentType string) bool {
	if hasExt(filename, ".csv", ".tsv") {
		return true
	}
	switch mediaType(contentType) {
	case "text/csv", "application/csv", "text/tab-separated-values":
		return true
	}
	return false
}

func (d csvDecoder) Decode(r io.Reader) (*table.Table, error) {
	br := bufio.NewReader(r)
	skipBOM(br)
	comma := d.Comma
	if comma == 0 {
		comma = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table.New(nil), nil
	}
	if err != nil {
		return nil, &table.UnsupportedFormatError{Format: "csv", Err: err}
	}
	t := table.New(headerNames(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &table.UnsupportedFormatError{Format: "csv", Err: err}
		}
		if blankRecord(rec) {
			continue
		}
		row := make([]table.Value, t.Width())
		for i := range row {
			if i < len(rec) {
				row[i] = cellValue(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func skipBOM(br *bufio.Reader) {
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
}

// sniffDelimiter picks the most frequent of ',', ';' and tab in the first
// line, defaulting to comma.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(line, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
