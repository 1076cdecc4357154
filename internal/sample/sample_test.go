package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
)

func TestLoad(t *testing.T) {
	tb, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 144, tb.Len())
	assert.Equal(t, []string{"date", "region", "product", "units", "unit_price", "revenue"}, tb.Columns)

	s, err := analysis.Inspect(tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"date"}, s.DatetimeColumns())
	assert.Equal(t, []string{"region", "product"}, s.CategoricalColumns())
	assert.Contains(t, s.NumericColumns(), "revenue")
}

func TestCSVIsCopy(t *testing.T) {
	a := CSV()
	a[0] = 'X'
	assert.Equal(t, byte('d'), CSV()[0])
}
