package numfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   string
	}{
		{11.666666, 2, "11.67"},
		{15, 2, "15"},
		{5.55e-17, 2, "0"},
		{-5.55e-17, 4, "0"},
		{-2.345, 2, "-2.35"},
		{1234567.891, 0, "1234568"},
		{math.NaN(), 2, "n/a"},
		{math.Inf(-1), 2, "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in, tt.places), "Format(%v, %d)", tt.in, tt.places)
	}
}

func TestCleanAndRound(t *testing.T) {
	assert.Equal(t, 0.0, Clean(1e-12))
	assert.Equal(t, 0.5, Clean(0.5))
	assert.Equal(t, 11.67, Round(35.0/3.0, 2))
	assert.Equal(t, 0.0, Round(-1e-15, 3))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.5%", Percent(0.125))
	assert.Equal(t, "0%", Percent(0))
	assert.Equal(t, "33.3%", Percent(1.0/3.0))
}
