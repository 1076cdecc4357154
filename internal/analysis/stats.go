package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// welford accumulates count, mean, variance and range in one pass.
type welford struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

func (w *welford) add(x float64) {
	w.n++
	if w.n == 1 {
		w.min, w.max = x, x
	} else {
		w.min = math.Min(w.min, x)
		w.max = math.Max(w.max, x)
	}
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

// variance is the sample variance; zero below two observations.
func (w *welford) variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

// Floats extracts the numeric view of vals. ok[i] is false where vals[i]
// is null or not numeric.
func Floats(vals []table.Value) (xs []float64, ok []bool) {
	xs = make([]float64, len(vals))
	ok = make([]bool, len(vals))
	for i, v := range vals {
		if v.IsNull() {
			continue
		}
		xs[i], ok[i] = v.Float()
	}
	return xs, ok
}

// Present returns the values of xs whose ok flag is set.
func Present(xs []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(xs))
	for i, x := range xs {
		if ok[i] {
			out = append(out, x)
		}
	}
	return out
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var w welford
	for _, x := range xs {
		w.add(x)
	}
	return w.mean
}

// StdDev is the sample standard deviation.
func StdDev(xs []float64) float64 {
	var w welford
	for _, x := range xs {
		w.add(x)
	}
	return math.Sqrt(w.variance())
}

// Variance is the sample variance.
func Variance(xs []float64) float64 {
	var w welford
	for _, x := range xs {
		w.add(x)
	}
	return w.variance()
}

// Median averages the two middle values for even counts.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return (cp[mid-1] + cp[mid]) / 2
}

// Quantile interpolates linearly within a sorted slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Pearson computes r over the rows where both okx and oky are set. Fewer
// than two complete rows or zero variance in either column yields 0.
func Pearson(xs, ys []float64, okx, oky []bool) float64 {
	var n int
	var sx, sy float64
	for i := range xs {
		if okx[i] && oky[i] {
			n++
			sx += xs[i]
			sy += ys[i]
		}
	}
	if n < 2 {
		return 0
	}
	mx, my := sx/float64(n), sy/float64(n)
	var sxx, syy, sxy float64
	for i := range xs {
		if okx[i] && oky[i] {
			dx, dy := xs[i]-mx, ys[i]-my
			sxx += dx * dx
			syy += dy * dy
			sxy += dx * dy
		}
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// LinearFit returns the least-squares slope and intercept of y on x.
// Degenerate inputs (fewer than two points, constant x) give a zero slope.
func LinearFit(xs, ys []float64) (slope, intercept float64) {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0, 0
	}
	mx, my := Mean(xs), Mean(ys)
	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if n < 2 || sxx == 0 {
		return 0, my
	}
	slope = sxy / sxx
	return slope, my - slope*mx
}
