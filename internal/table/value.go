package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime"
	default:
		return "null"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
	flag bool
	ts   time.Time
}

func Null() Value            { return Value{} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{kind: KindText, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, flag: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, ts: t} }
func (v Value) Kind() Kind   { return v.kind }

// IsNull reports whether the cell carries no data. Blank text counts as null.
func (v Value) IsNull() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.str) == ""
	case KindNumber:
		return math.IsNaN(v.num)
	}
	return false
}

// Float coerces the value to a finite number. Text is parsed; booleans and
// datetimes are not numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, false
		}
		return v.num, true
	case KindText:
		return ParseNumber(v.str)
	}
	return 0, false
}

// Timestamp coerces the value to a time. Text is parsed with the ISO-like
// layouts in timeLayouts.
func (v Value) Timestamp() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.ts, true
	case KindText:
		return ParseTime(v.str)
	}
	return time.Time{}, false
}

// String renders the value as plain text. It doubles as the grouping key
// for categorical counts.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindTime:
		return formatTime(v.ts)
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// MarshalJSON encodes numbers as JSON numbers (non-finite ones as null),
// datetimes as strings, and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.flag)
	case KindTime:
		return json.Marshal(formatTime(v.ts))
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = FromAny(raw)
	return nil
}

// FromAny maps a decoded Go value onto the closed Value set. Nested objects
// and arrays are kept as their compact JSON text.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case time.Time:
		return Time(t)
	case fmt.Stringer:
		return Text(t.String())
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return Text(fmt.Sprint(t))
		}
		return Text(string(b))
	}
	return Text(fmt.Sprint(x))
}

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseNumber parses decimal text. A trailing percent sign and comma
// thousands separators ("1,250.5") are accepted; NaN and infinities are not.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "%")
	if thousandsPattern.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") || strings.Contains(raw, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
}

// ParseTime parses ISO-like date and datetime text.
func ParseTime(s string) (time.Time, bool) {
	raw := strings.TrimSpace(s)
	if len(raw) < 7 {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
