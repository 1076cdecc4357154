package reduce

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// ClusterSizeColumn is appended to clustered output with member counts.
const ClusterSizeColumn = "cluster_size"

type clusterStrategy struct {
	seed    uint64
	maxIter int
	minRows int
}

func (c *clusterStrategy) Method() Method { return MethodCluster }

func (c *clusterStrategy) Applicable(s *analysis.Summary, rowCount, _ int) bool {
	return len(s.NumericColumns()) >= 2 && rowCount > c.minRows
}

// Apply runs k-means with k = maxRows on z-scored numeric columns and
// emits one row per non-empty cluster.
func (c *clusterStrategy) Apply(t *table.Table, s *analysis.Summary, maxRows int) (*table.Table, error) {
	var numIdx []int
	for ci, name := range t.Columns {
		if isNumeric(s, name) {
			numIdx = append(numIdx, ci)
		}
	}
	if len(numIdx) < 2 {
		return nil, fmt.Errorf("cluster: need two numeric columns, have %d", len(numIdx))
	}
	points, means, scales := standardize(t, numIdx)
	km := KMeans{K: maxRows, MaxIter: c.maxIter, Seed: c.seed}
	labels, _, err := km.Fit(points)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	members := make([][]int, maxRows)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	cols := append(append([]string{}, t.Columns...), uniqueName(t, ClusterSizeColumn))
	out := table.New(cols)
	for _, idx := range members {
		if len(idx) == 0 {
			continue
		}
		row := make([]table.Value, len(cols))
		for ci := range t.Columns {
			row[ci] = modeOf(t, idx, ci)
		}
		for j, ci := range numIdx {
			var sum float64
			for _, i := range idx {
				sum += points[i][j]
			}
			row[ci] = table.Number(sum/float64(len(idx))*scales[j] + means[j])
		}
		row[len(cols)-1] = table.Number(float64(len(idx)))
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// standardize z-scores the numeric columns, imputing nulls with the column
// mean. Scales use the population deviation; constant columns get scale 1.
func standardize(t *table.Table, numIdx []int) (points [][]float64, means, scales []float64) {
	n := t.Len()
	d := len(numIdx)
	means = make([]float64, d)
	scales = make([]float64, d)
	raw := make([][]float64, d)
	valid := make([][]bool, d)
	for j, ci := range numIdx {
		vals := make([]table.Value, n)
		for i, row := range t.Rows {
			vals[i] = row[ci]
		}
		raw[j], valid[j] = analysis.Floats(vals)
		present := analysis.Present(raw[j], valid[j])
		means[j] = analysis.Mean(present)
		var ss float64
		for _, x := range present {
			ss += (x - means[j]) * (x - means[j])
		}
		scales[j] = 1
		if len(present) > 0 {
			if sd := math.Sqrt(ss / float64(len(present))); sd > 0 {
				scales[j] = sd
			}
		}
	}
	points = make([][]float64, n)
	for i := range points {
		p := make([]float64, d)
		for j := range numIdx {
			x := means[j]
			if valid[j][i] {
				x = raw[j][i]
			}
			p[j] = (x - means[j]) / scales[j]
		}
		points[i] = p
	}
	return points, means, scales
}

func uniqueName(t *table.Table, base string) string {
	name := base
	for k := 1; t.Index(name) >= 0; k++ {
		name = fmt.Sprintf("%s_%d", base, k)
	}
	return name
}

// KMeans is Lloyd's algorithm with k-means++ seeding from a PCG source.
type KMeans struct {
	K       int
	MaxIter int
	Seed    uint64
}

var errNoPoints = errors.New("kmeans: no points")

// Fit returns a cluster label per point and the final centroids. Reaching
// MaxIter returns the last iterate. An emptied cluster is reseeded with
// the point farthest from its centroid.
func (km KMeans) Fit(points [][]float64) ([]int, [][]float64, error) {
	n := len(points)
	if n == 0 {
		return nil, nil, errNoPoints
	}
	if km.K < 1 {
		return nil, nil, fmt.Errorf("kmeans: k=%d", km.K)
	}
	k := km.K
	if k > n {
		k = n
	}
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))
	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	dim := len(points[0])

	for iter := 0; iter < km.MaxIter; iter++ {
		changed := false
		for i, p := range points {
			best, _ := nearest(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			l := labels[i]
			counts[l]++
			for j, x := range p {
				sums[l][j] += x
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
		for c := range centroids {
			if counts[c] > 0 {
				continue
			}
			far, farD := -1, -1.0
			for i, p := range points {
				if counts[labels[i]] <= 1 {
					continue
				}
				if d := sqDist(p, centroids[labels[i]]); d > farD {
					far, farD = i, d
				}
			}
			if far < 0 {
				continue
			}
			counts[labels[far]]--
			labels[far] = c
			counts[c] = 1
			copy(centroids[c], points[far])
		}
	}
	return labels, centroids, nil
}

// seedPlusPlus picks k initial centroids, each chosen with probability
// proportional to its squared distance from the nearest chosen one.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	pick := func(i int) {
		c := make([]float64, len(points[i]))
		copy(c, points[i])
		centroids = append(centroids, c)
	}
	pick(rng.IntN(n))
	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}
		next := n - 1
		if total == 0 {
			next = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		pick(next)
		last := centroids[len(centroids)-1]
		for i, p := range points {
			if d := sqDist(p, last); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, cen := range centroids {
		if d := sqDist(p, cen); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
