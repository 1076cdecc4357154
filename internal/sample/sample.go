// Package sample bundles a small sales dataset for demos and smoke tests.
package sample

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/KaramelBytes/vizloom-cli/internal/ingest"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Name is the file name the sample is served under.
const Name = "sales.csv"

//go:embed sales.csv
var salesCSV []byte

// CSV returns a copy of the raw sample file.
func CSV() []byte {
	return bytes.Clone(salesCSV)
}

// Load decodes the sample into a table.
func Load() (*table.Table, error) {
	t, err := ingest.Decode(Name, "text/csv", bytes.NewReader(salesCSV))
	if err != nil {
		return nil, fmt.Errorf("load sample: %w", err)
	}
	return t, nil
}
