package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags the value held by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
)

// Cell is a tagged cell value. The zero Cell is null.
type Cell struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// Row holds one cell per original column index.
type Row []Cell

// Null returns a null cell.
func Null() Cell { return Cell{} }

// Str returns a string cell.
func Str(s string) Cell { return Cell{kind: KindString, str: s} }

// Num returns a number cell.
func Num(f float64) Cell { return Cell{kind: KindNumber, num: f} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{kind: KindBool, b: b} }

// Time returns a date or timestamp cell.
func Time(t time.Time) Cell { return Cell{kind: KindTime, t: t} }

// CellOf converts a Go value to a Cell.
func CellOf(v any) Cell {
	switch val := v.(type) {
	case nil:
		return Null()
	case Cell:
		return val
	case string:
		return Str(val)
	case bool:
		return Bool(val)
	case int:
		return Num(float64(val))
	case int8:
		return Num(float64(val))
	case int16:
		return Num(float64(val))
	case int32:
		return Num(float64(val))
	case int64:
		return Num(float64(val))
	case uint:
		return Num(float64(val))
	case uint8:
		return Num(float64(val))
	case uint16:
		return Num(float64(val))
	case uint32:
		return Num(float64(val))
	case uint64:
		return Num(float64(val))
	case float32:
		return Num(float64(val))
	case float64:
		return Num(val)
	case time.Time:
		return Time(val)
	case *time.Time:
		if val == nil {
			return Null()
		}
		return Time(*val)
	case fmt.Stringer:
		return Str(val.String())
	default:
		return Str(fmt.Sprintf("%v", v))
	}
}

// Strings builds a row of string cells.
func Strings(values ...string) Row {
	r := make(Row, len(values))
	for i, v := range values {
		r[i] = Str(v)
	}
	return r
}

// Values builds a row from Go values using CellOf.
func Values(values ...any) Row {
	r := make(Row, len(values))
	for i, v := range values {
		r[i] = CellOf(v)
	}
	return r
}

// Kind returns the cell's tag.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.kind == KindNull }

// Text returns the stringified value used for search, text filters and
// multi-select membership. Null cells stringify to "".
func (c Cell) Text() string {
	switch c.kind {
	case KindString:
		return c.str
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.b)
	case KindTime:
		if isMidnight(c.t) {
			return c.t.Format(time.DateOnly)
		}
		return c.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (c Cell) String() string { return c.Text() }

// Float returns the cell as a finite number. String cells are parsed with
// ParseNumber; anything else that is not a number fails.
func (c Cell) Float() (float64, bool) {
	switch c.kind {
	case KindNumber:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return 0, false
		}
		return c.num, true
	case KindString:
		return ParseNumber(c.str)
	default:
		return 0, false
	}
}

// Instant returns the cell as a point in time.
func (c Cell) Instant() (time.Time, bool) {
	switch c.kind {
	case KindTime:
		return c.t, !c.t.IsZero()
	case KindString:
		return ParseTime(c.str)
	default:
		return time.Time{}, false
	}
}

// Date returns the cell as a calendar date with the time of day zeroed.
func (c Cell) Date() (time.Time, bool) {
	t, ok := c.Instant()
	if !ok {
		return time.Time{}, false
	}
	return dayOf(t), true
}

// Equal reports whether two cells hold the same tagged value.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindString:
		return c.str == o.str
	case KindNumber:
		return c.num == o.num
	case KindBool:
		return c.b == o.b
	case KindTime:
		return c.t.Equal(o.t)
	default:
		return true
	}
}

// MarshalJSON encodes the cell as a JSON scalar.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindString:
		return json.Marshal(c.str)
	case KindNumber:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.num)
	case KindBool:
		return json.Marshal(c.b)
	case KindTime:
		return json.Marshal(c.Text())
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar into a cell. Timestamps arrive as
// strings and stay string cells; date parsing happens on comparison.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Str(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = Bool(b)
	case '{', '[':
		return fmt.Errorf("%w: cell must be a scalar, got %s", ErrRowShape, data)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number cell %s: %w", data, err)
		}
		*c = Num(f)
	}
	return nil
}

// Clone returns a copy of the row. Cells are values, so the copy shares
// nothing with the original.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// cloneRows deep-copies a row slice.
func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
