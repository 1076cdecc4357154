package table

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCoercions(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		wantNum float64
		numOK   bool
		null    bool
	}{
		{"number", Number(3.5), 3.5, true, false},
		{"numeric text", Text(" 42 "), 42, true, false},
		{"thousands", Text("1,250.5"), 1250.5, true, false},
		{"percent", Text("12%"), 12, true, false},
		{"blank text", Text("   "), 0, false, true},
		{"null", Null(), 0, false, true},
		{"nan", Number(math.NaN()), 0, false, true},
		{"bool", Bool(true), 0, false, false},
		{"hex rejected", Text("0x10"), 0, false, false},
		{"inf text rejected", Text("Inf"), 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := tt.v.Float()
			assert.Equal(t, tt.numOK, ok)
			if ok {
				assert.InDelta(t, tt.wantNum, f, 1e-12)
			}
			assert.Equal(t, tt.null, tt.v.IsNull())
		})
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-03-01", "2024-03-01T10:20:30Z", "2024-03-01 10:20", "2024/03/01", "2024-03"} {
		_, ok := ParseTime(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "2024", "March 1", "12:00", "abc-de-fg"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestValueStringAndJSON(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", Time(day).String())
	assert.Equal(t, "2024-01-02T03:04:05Z", Time(day.Add(3*time.Hour+4*time.Minute+5*time.Second)).String())
	assert.Equal(t, "2.5", Number(2.5).String())

	b, err := json.Marshal([]Value{Null(), Number(math.Inf(1)), Number(1), Text("x"), Bool(false), Time(day)})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,1,"x",false,"2024-01-02"]`, string(b))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`12.25`), &v))
	assert.Equal(t, KindNumber, v.Kind())
	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &v))
	assert.Equal(t, KindText, v.Kind())
	assert.Equal(t, `{"a":1}`, v.String())
}

func TestFromAny(t *testing.T) {
	assert.Equal(t, KindNumber, FromAny(int64(7)).Kind())
	assert.Equal(t, KindNumber, FromAny(json.Number("1.5")).Kind())
	assert.Equal(t, KindText, FromAny(json.Number("nope")).Kind())
	assert.Equal(t, KindBool, FromAny(true).Kind())
	assert.Equal(t, KindNull, FromAny(nil).Kind())
	assert.Equal(t, KindTime, FromAny(time.Now()).Kind())
	assert.Equal(t, KindText, FromAny([]byte("raw")).Kind())
}

func TestTableBasics(t *testing.T) {
	tb := New([]string{"a", "b"})
	tb.Append([]Value{Number(1)})
	tb.Append([]Value{Number(2), Text("x"), Text("dropped")})
	require.Equal(t, 2, tb.Len())
	assert.Len(t, tb.Rows[0], 2)
	assert.True(t, tb.Rows[0][1].IsNull())
	assert.Len(t, tb.Rows[1], 2)

	assert.Equal(t, 1, tb.Index("b"))
	assert.Equal(t, -1, tb.Index("missing"))
	assert.Nil(t, tb.Column("missing"))
	assert.Equal(t, "x", tb.Get(1, "b").String())
	assert.True(t, tb.Get(5, "b").IsNull())

	assert.Equal(t, 1, tb.Head(1).Len())
	assert.Equal(t, 2, tb.Head(10).Len())
	assert.Equal(t, 0, tb.Head(-1).Len())

	p := tb.Pick([]int{1, 0, 9})
	require.Equal(t, 2, p.Len())
	assert.Equal(t, "2", p.Get(0, "a").String())

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	assert.Equal(t, 0, nilTable.Width())
}

func TestCheckNotEmpty(t *testing.T) {
	err := CheckNotEmpty(New([]string{"a"}))
	var empty *EmptyTableError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 0, empty.Rows)
	assert.Equal(t, 1, empty.Columns)

	err = CheckNotEmpty(nil)
	require.True(t, errors.As(err, &empty))

	tb := New([]string{"a"})
	tb.Append([]Value{Number(1)})
	assert.NoError(t, CheckNotEmpty(tb))
}

func TestUnsupportedFormatError(t *testing.T) {
	inner := errors.New("bad header")
	err := error(&UnsupportedFormatError{Format: "csv", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "unsupported format csv: bad header", err.Error())
	assert.Equal(t, "unsupported format: pdf", (&UnsupportedFormatError{Format: "pdf"}).Error())
}

func TestTableJSONKeepsColumnOrder(t *testing.T) {
	var tb Table
	require.NoError(t, json.Unmarshal([]byte(`[
		{"zeta": 1, "alpha": "a"},
		{"alpha": "b", "mid": true},
		{"zeta": null}
	]`), &tb))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, tb.Columns)
	require.Equal(t, 3, tb.Len())
	assert.True(t, tb.Get(1, "zeta").IsNull())
	assert.True(t, tb.Get(0, "mid").IsNull())
	assert.Equal(t, KindBool, tb.Get(1, "mid").Kind())

	b, err := json.Marshal(tb)
	require.NoError(t, err)
	assert.Equal(t, `[{"zeta":1,"alpha":"a","mid":null},{"zeta":null,"alpha":"b","mid":true},{"zeta":null,"alpha":null,"mid":null}]`, string(b))
}

func TestTableJSONRejectsNonArray(t *testing.T) {
	var tb Table
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &tb))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &tb))
	require.NoError(t, json.Unmarshal([]byte(`null`), &tb))
	assert.Equal(t, 0, tb.Len())
}

func TestFromRecords(t *testing.T) {
	tb := FromRecords([]string{"category", "value"}, []map[string]any{
		{"category": "A", "value": 10},
		{"category": "B"},
	})
	require.Equal(t, 2, tb.Len())
	f, ok := tb.Get(0, "value").Float()
	require.True(t, ok)
	assert.Equal(t, 10.0, f)
	assert.True(t, tb.Get(1, "value").IsNull())
}
