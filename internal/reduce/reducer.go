// Package reduce shrinks a table to a row budget while keeping the shape a
// chart needs. Strategies are tried in a fixed priority order; any failure
// falls back to deterministic sampling.
package reduce

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Method names the branch a reduction took.
type Method string

const (
	MethodNone      Method = "none"
	MethodResample  Method = "resample"
	MethodAggregate Method = "aggregate"
	MethodCluster   Method = "cluster"
	MethodSample    Method = "sample"
)

// DefaultSeed seeds k-means++ initialisation and uniform sampling so that
// identical inputs reduce identically.
const DefaultSeed uint64 = 42

// Sample modes.
const (
	SampleUniform = "uniform"
	SampleHead    = "head"
)

// Options tunes the strategies.
type Options struct {
	Seed           uint64
	MaxIter        int
	ClusterMinRows int
	SampleMode     string
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Seed:           DefaultSeed,
		MaxIter:        100,
		ClusterMinRows: 500,
		SampleMode:     SampleUniform,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.ClusterMinRows <= 0 {
		o.ClusterMinRows = d.ClusterMinRows
	}
	if o.SampleMode != SampleHead {
		o.SampleMode = SampleUniform
	}
	return o
}

// Result is a reduced table and how it was produced. Rows is carried
// separately from the JSON metadata.
type Result struct {
	Rows             *table.Table `json:"-"`
	Method           Method       `json:"method"`
	OriginalRowCount int          `json:"original_row_count"`
	ReducedRowCount  int          `json:"reduced_row_count"`
	// FallbackFrom is set when a preferred strategy failed and sampling
	// took over.
	FallbackFrom Method `json:"fallback_from,omitempty"`
}

// Strategy is one reduction technique.
type Strategy interface {
	Method() Method
	Applicable(s *analysis.Summary, rowCount, maxRows int) bool
	Apply(t *table.Table, s *analysis.Summary, maxRows int) (*table.Table, error)
}

// FallbackWarning records a strategy that was chosen but could not produce
// a valid result. It is logged, never returned to callers.
type FallbackWarning struct {
	From Method
	Err  error
}

func (w *FallbackWarning) Error() string {
	return fmt.Sprintf("reduction fallback from %s: %v", w.From, w.Err)
}

func (w *FallbackWarning) Unwrap() error { return w.Err }

var errEmptyOutput = errors.New("strategy produced no rows")

// Reducer applies the first applicable strategy.
type Reducer struct {
	strategies []Strategy
	fallback   Strategy
	logger     *zap.Logger
}

// New builds a reducer with the standard strategy order:
// resample, aggregate, cluster, sample.
func New(opts Options, logger *zap.Logger) *Reducer {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := &sampleStrategy{seed: opts.Seed, mode: opts.SampleMode}
	return &Reducer{
		strategies: []Strategy{
			resampleStrategy{},
			aggregateStrategy{},
			&clusterStrategy{seed: opts.Seed, maxIter: opts.MaxIter, minRows: opts.ClusterMinRows},
			fallback,
		},
		fallback: fallback,
		logger:   logger.Named("reduce"),
	}
}

// Reduce returns t unchanged when it already fits maxRows. A nil summary is
// computed from t. maxRows below 1 is treated as 1.
func (r *Reducer) Reduce(t *table.Table, s *analysis.Summary, maxRows int) Result {
	if maxRows < 1 {
		maxRows = 1
	}
	n := t.Len()
	if n <= maxRows {
		return Result{Rows: t, Method: MethodNone, OriginalRowCount: n, ReducedRowCount: n}
	}
	if s == nil {
		var err error
		if s, err = analysis.Inspect(t); err != nil {
			r.logger.Warn("inspect before reduce failed", zap.Error(err))
		}
	}

	for _, st := range r.strategies {
		if !st.Applicable(s, n, maxRows) {
			continue
		}
		out, err := st.Apply(t, s, maxRows)
		if err == nil {
			err = validate(out, maxRows)
		}
		if err == nil {
			r.logger.Debug("reduced",
				zap.String("method", string(st.Method())),
				zap.Int("from", n),
				zap.Int("to", out.Len()))
			return Result{Rows: out, Method: st.Method(), OriginalRowCount: n, ReducedRowCount: out.Len()}
		}
		if st == r.fallback {
			break
		}
		warn := &FallbackWarning{From: st.Method(), Err: err}
		r.logger.Warn("reduction fallback", zap.String("from", string(st.Method())), zap.Error(warn))
		return r.sample(t, s, maxRows, st.Method())
	}
	return r.sample(t, s, maxRows, "")
}

func (r *Reducer) sample(t *table.Table, s *analysis.Summary, maxRows int, from Method) Result {
	out, err := r.fallback.Apply(t, s, maxRows)
	if err != nil || out.Len() > maxRows {
		out = t.Head(maxRows)
	}
	return Result{Rows: out, Method: MethodSample, OriginalRowCount: t.Len(), ReducedRowCount: out.Len(), FallbackFrom: from}
}

func validate(out *table.Table, maxRows int) error {
	switch {
	case out.Len() == 0:
		return errEmptyOutput
	case out.Len() > maxRows:
		return fmt.Errorf("strategy produced %d rows, budget %d", out.Len(), maxRows)
	}
	return nil
}

// modeOf returns the most frequent non-null value among rows at idx in
// column ci, breaking ties by first appearance. All-null yields null.
func modeOf(t *table.Table, idx []int, ci int) table.Value {
	counts := map[string]int{}
	first := map[string]table.Value{}
	var order []string
	for _, i := range idx {
		v := t.Rows[i][ci]
		if v.IsNull() {
			continue
		}
		k := v.String()
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}
	best, bestN := "", 0
	for _, k := range order {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	if bestN == 0 {
		return table.Null()
	}
	return first[best]
}

// meanOf averages the numeric values among rows at idx in column ci.
func meanOf(t *table.Table, idx []int, ci int) table.Value {
	var sum float64
	var n int
	for _, i := range idx {
		v := t.Rows[i][ci]
		if v.IsNull() {
			continue
		}
		if f, ok := v.Float(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return table.Null()
	}
	return table.Number(sum / float64(n))
}

func isNumeric(s *analysis.Summary, name string) bool {
	return s.TypeOf(name) == analysis.Numeric
}
