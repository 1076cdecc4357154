// Package numfmt renders floats for people: near-zero noise from float
// arithmetic prints as 0 and digits are rounded half away from zero.
package numfmt

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon is the magnitude below which a value is treated as zero.
const Epsilon = 1e-9

// Clean returns 0 for |x| < Epsilon and x otherwise.
func Clean(x float64) float64 {
	if math.Abs(x) < Epsilon {
		return 0
	}
	return x
}

// Format rounds x to the given decimal places and drops trailing zeros.
// Non-finite values render as "n/a".
func Format(x float64, places int32) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(Clean(x)).Round(places).String()
}

// Percent renders a fraction in [0,1] as a percentage with one decimal.
func Percent(frac float64) string {
	return Format(frac*100, 1) + "%"
}

// Round rounds x to the given places, clamping near-zero values.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(Clean(x)).Round(places).Float64()
	return f
}
