package reduce

import (
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/analysis"
	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Granularity is a time bucket width.
type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

var granularities = []Granularity{Day, Week, Month, Quarter, Year}

// BucketStart truncates ts to the start of its bucket. Weeks start on
// Monday.
func BucketStart(ts time.Time, g Granularity) time.Time {
	y, m, d := ts.Date()
	loc := ts.Location()
	switch g {
	case Week:
		offset := (int(ts.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Quarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, loc)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

type resampleStrategy struct{}

func (resampleStrategy) Method() Method { return MethodResample }

func (resampleStrategy) Applicable(s *analysis.Summary, _, _ int) bool {
	return len(s.DatetimeColumns()) > 0 && len(s.NumericColumns()) > 0
}

// Apply buckets rows on the first datetime column at the finest
// granularity that fits maxRows. Rows without a timestamp are dropped.
func (resampleStrategy) Apply(t *table.Table, s *analysis.Summary, maxRows int) (*table.Table, error) {
	timeCol := s.DatetimeColumns()[0]
	ti := t.Index(timeCol)
	if ti < 0 {
		return nil, fmt.Errorf("resample: column %q absent", timeCol)
	}
	stamps := make([]time.Time, 0, t.Len())
	rows := make([]int, 0, t.Len())
	for i, row := range t.Rows {
		if row[ti].IsNull() {
			continue
		}
		if ts, ok := row[ti].Timestamp(); ok {
			stamps = append(stamps, ts)
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("resample: no timestamps in %q", timeCol)
	}

	for _, g := range granularities {
		keys, members := bucketize(stamps, rows, g)
		if len(keys) > maxRows {
			continue
		}
		out := table.New(t.Columns)
		for _, k := range keys {
			idx := members[k]
			row := make([]table.Value, t.Width())
			for ci, name := range t.Columns {
				switch {
				case ci == ti:
					row[ci] = table.Time(k)
				case isNumeric(s, name):
					row[ci] = meanOf(t, idx, ci)
				default:
					row[ci] = modeOf(t, idx, ci)
				}
			}
			out.Rows = append(out.Rows, row)
		}
		return out, nil
	}
	return nil, fmt.Errorf("resample: %q spans more than %d years", timeCol, maxRows)
}

// bucketize groups row indices by bucket start, returning keys in time
// order. Buckets are keyed by instant since parsed fixed zones do not share
// a *time.Location.
func bucketize(stamps []time.Time, rows []int, g Granularity) ([]time.Time, map[time.Time][]int) {
	byInstant := map[int64]time.Time{}
	members := map[time.Time][]int{}
	var keys []time.Time
	for i, ts := range stamps {
		k := BucketStart(ts, g)
		if seen, ok := byInstant[k.UnixNano()]; ok {
			k = seen
		} else {
			byInstant[k.UnixNano()] = k
			keys = append(keys, k)
		}
		members[k] = append(members[k], rows[i])
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].Before(keys[b]) })
	return keys, members
}
