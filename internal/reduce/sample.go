package reduce

import (
	"math/rand/v2"
	"sort"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

type sampleStrategy struct {
	seed uint64
	mode string
}

func (*sampleStrategy) Method() Method { return MethodSample }

func (*sampleStrategy) Applicable(*analysis.Summary, int, int) bool { return true }

// Apply draws maxRows distinct rows uniformly with a seeded source and
// keeps them in table order. Head mode truncates instead.
func (st *sampleStrategy) Apply(t *table.Table, _ *analysis.Summary, maxRows int) (*table.Table, error) {
	if st.mode == SampleHead || t.Len() <= maxRows {
		return t.Head(maxRows), nil
	}
	rng := rand.New(rand.NewPCG(st.seed, st.seed))
	return t.Pick(SampleIndices(t.Len(), maxRows, rng)), nil
}

// SampleIndices chooses k distinct indices from [0,n) using Floyd's
// algorithm and returns them sorted.
func SampleIndices(n, k int, rng *rand.Rand) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	chosen := make(map[int]struct{}, k)
	for j := n - k; j < n; j++ {
		x := rng.IntN(j + 1)
		if _, dup := chosen[x]; dup {
			x = j
		}
		chosen[x] = struct{}{}
	}
	out := make([]int, 0, k)
	for i := range chosen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
