// Package pipeline composes inspection, reduction, query interpretation,
// and insight generation into the operations served by the CLI and the
// HTTP API.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/ingest"
	"github.com/KaramelBytes/vizloom-cli/internal/insight"
	"github.com/KaramelBytes/vizloom-cli/internal/query"
	"github.com/KaramelBytes/vizloom-cli/internal/reduce"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// DefaultMaxPoints is the row budget used when a request names none.
const DefaultMaxPoints = 50

// EmptyDatasetInsight answers a process request on a table without rows.
const EmptyDatasetInsight = "The dataset is empty."

// Options configures a Processor.
type Options struct {
	DefaultMaxPoints int
	Reduce           reduce.Options
	Insight          insight.Options
}

func DefaultOptions() Options {
	return Options{
		DefaultMaxPoints: DefaultMaxPoints,
		Reduce:           reduce.DefaultOptions(),
		Insight:          insight.DefaultOptions(),
	}
}

// Processor runs the pipeline. It holds no per-request state and is safe
// for concurrent use.
type Processor struct {
	opts    Options
	reducer *reduce.Reducer
	logger  *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultMaxPoints <= 0 {
		opts.DefaultMaxPoints = DefaultMaxPoints
	}
	return &Processor{
		opts:    opts,
		reducer: reduce.New(opts.Reduce, logger),
		logger:  logger.Named("pipeline"),
	}
}

// Dataset is an ingested table with its summary.
type Dataset struct {
	Data    *table.Table      `json:"data"`
	Summary *analysis.Summary `json:"summary"`
}

// Ingest decodes r and summarises the result. The format is chosen from
// filename and contentType, falling back to content sniffing.
func (p *Processor) Ingest(filename, contentType string, r io.Reader) (*Dataset, error) {
	t, err := ingest.Decode(filename, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", displayName(filename), err)
	}
	return p.dataset(t)
}

// IngestAs decodes r with the named format's decoder, skipping detection.
func (p *Processor) IngestAs(format string, r io.Reader) (*Dataset, error) {
	d, err := ingest.ByFormat(format)
	if err != nil {
		return nil, err
	}
	t, err := d.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", format, err)
	}
	return p.dataset(t)
}

// IngestFile decodes a local file chosen by extension.
func (p *Processor) IngestFile(path string) (*Dataset, error) {
	t, err := ingest.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	return p.dataset(t)
}

// IngestSQL runs a query against a database source.
func (p *Processor) IngestSQL(ctx context.Context, src ingest.SQLSource) (*Dataset, error) {
	t, err := ingest.QuerySQL(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", src.Driver, err)
	}
	return p.dataset(t)
}

func (p *Processor) dataset(t *table.Table) (*Dataset, error) {
	s, err := p.Analyze(t)
	if err != nil {
		return nil, err
	}
	return &Dataset{Data: t, Summary: s}, nil
}

// Analyze returns the summary of t. Empty tables fail with
// *table.EmptyTableError.
func (p *Processor) Analyze(t *table.Table) (*analysis.Summary, error) {
	s, err := analysis.Inspect(t)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("analyzed",
		zap.Int("rows", s.RowCount),
		zap.Int("columns", s.ColumnCount))
	return s, nil
}

// Request is the input of Process.
type Request struct {
	Data      table.Table `json:"data"`
	Query     string      `json:"query"`
	MaxPoints int         `json:"max_points"`
}

// Response is the output of Process.
type Response struct {
	ProcessedData          *table.Table      `json:"processed_data"`
	Insights               []string          `json:"insights"`
	SuggestedVisualization query.ChartType   `json:"suggested_visualization"`
	Intent                 *query.Intent     `json:"intent,omitempty"`
	Reduction              *reduce.Result    `json:"reduction,omitempty"`
	Charts                 []Chart           `json:"charts"`
	Summary                *analysis.Summary `json:"-"`
}

// Process interprets the query, reduces the table to the row budget, and
// derives insights and auxiliary charts. An empty table is answered with a
// single insight rather than an error.
func (p *Processor) Process(ctx context.Context, req Request) (*Response, error) {
	t := &req.Data
	maxPoints := req.MaxPoints
	if maxPoints <= 0 {
		maxPoints = p.opts.DefaultMaxPoints
	}
	if t.Len() == 0 || t.Width() == 0 {
		return &Response{
			ProcessedData: table.New(t.Columns),
			Insights:      []string{EmptyDatasetInsight},
			Charts:        []Chart{},
		}, nil
	}

	s, err := analysis.Inspect(t)
	if err != nil {
		return nil, err
	}
	intent := query.Interpret(req.Query, s)
	if intent.Defaulted {
		p.logger.Debug("query interpretation defaulted",
			zap.String("query", req.Query),
			zap.String("chart_type", string(intent.ChartType)),
			zap.String("x_axis", intent.XAxis),
			zap.String("value_key", intent.ValueKey))
	}

	// Reduction notes, then answers to the request, lead the list. All of
	// them share the insight cap with the generated insights, whose last
	// slot is always the dataset-size line.
	limit := max(p.opts.Insight.MaxInsights, 1)
	requested := insight.Requested(t, s, intent)
	noteSlots := 0
	if t.Len() > maxPoints {
		noteSlots = 2
	}
	lead := min(noteSlots+len(requested), limit-1)
	insOpts := p.opts.Insight
	insOpts.MaxInsights = limit - lead

	var (
		result   reduce.Result
		insights []string
		charts   []Chart
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		result = p.reducer.Reduce(t, s, maxPoints)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		insights = insight.Generate(t, s, insOpts)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		charts = AuxCharts(t, s, maxPoints)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	return &Response{
		ProcessedData:          result.Rows,
		Insights:               mergeInsights(reductionNotes(result, s, maxPoints, p.opts.Reduce), requested, insights, lead),
		SuggestedVisualization: intent.ChartType,
		Intent:                 &intent,
		Reduction:              &result,
		Charts:                 charts,
		Summary:                s,
	}, nil
}

func reductionNotes(r reduce.Result, s *analysis.Summary, maxPoints int, opts reduce.Options) []string {
	if r.Method == reduce.MethodNone {
		return nil
	}
	notes := []string{fmt.Sprintf("Dataset reduced from %d to %d points for visualization.", r.OriginalRowCount, r.ReducedRowCount)}
	switch r.Method {
	case reduce.MethodResample:
		notes = append(notes, "Time-based resampling was used to reduce data points.")
	case reduce.MethodAggregate:
		notes = append(notes, fmt.Sprintf("Rows were aggregated by %s to reduce data points.", reduce.GroupColumn(s, maxPoints)))
	case reduce.MethodCluster:
		notes = append(notes, "K-means clustering was used to reduce data points while preserving patterns.")
	case reduce.MethodSample:
		if opts.SampleMode == reduce.SampleHead {
			notes = append(notes, "The first rows were kept to reduce data points.")
		} else {
			notes = append(notes, "Random sampling was used to reduce data points.")
		}
	}
	return notes
}

// mergeInsights keeps the first lead of notes then requested, followed by
// the generated insights minus any that repeat a requested line.
func mergeInsights(notes, requested, generated []string, lead int) []string {
	head := append(append([]string{}, notes...), requested...)
	if len(head) > lead {
		head = head[:lead]
	}
	out := head
	for _, g := range generated {
		if !slices.Contains(requested, g) {
			out = append(out, g)
		}
	}
	return out
}

func displayName(filename string) string {
	if filename == "" {
		return "upload"
	}
	return filename
}
