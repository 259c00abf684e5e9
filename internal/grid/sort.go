package grid

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortRows returns a sorted copy of rows using the default collation.
// See SortRowsIn.
func SortRows(rows []Row, criteria []SortCriterion, columns []Column) []Row {
	return SortRowsIn(language.Und, rows, criteria, columns)
}

// SortRowsIn returns a copy of rows sorted by criteria, first criterion
// primary. The sort is stable: rows equal under every criterion keep their
// input order.
//
// Each criterion compares numerically when both cells parse as finite
// numbers, chronologically when the column is a date or datetime column and
// both cells parse as dates, and otherwise by case-insensitive collation of
// the cell text in the given locale. Null cells sort before any value.
// Criteria naming an unknown column are ignored.
func SortRowsIn(tag language.Tag, rows []Row, criteria []SortCriterion, columns []Column) []Row {
	out := slices.Clone(rows)
	if out == nil {
		out = []Row{}
	}

	keys := make([]SortCriterion, 0, len(criteria))
	for _, c := range criteria {
		if c.Column >= 0 && c.Column < len(columns) {
			keys = append(keys, c)
		}
	}
	if len(keys) == 0 || len(out) < 2 {
		return out
	}

	coll := collate.New(tag, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b Row) int {
		for _, k := range keys {
			r := compareCells(cellAt(a, k.Column), cellAt(b, k.Column), columns[k.Column].Type, coll)
			if r == 0 {
				continue
			}
			if k.Direction == Desc {
				return -r
			}
			return r
		}
		return 0
	})
	return out
}

// compareCells orders two cells of a column of type dt.
func compareCells(a, b Cell, dt DataType, coll *collate.Collator) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}

	if dt.isTemporal() {
		ta, okA := a.Instant()
		tb, okB := b.Instant()
		if okA && okB {
			if dt == TypeDate {
				ta, tb = dayOf(ta), dayOf(tb)
			}
			return ta.Compare(tb)
		}
	}

	if fa, okA := a.Float(); okA {
		if fb, okB := b.Float(); okB {
			return cmp.Compare(fa, fb)
		}
	}

	return coll.CompareString(a.Text(), b.Text())
}

func cellAt(r Row, i int) Cell {
	if i < len(r) {
		return r[i]
	}
	return Null()
}

// Modifier is the keyboard modifier held while clicking a column header.
type Modifier int

const (
	// ModNone replaces the criteria: the primary key toggles, any other
	// column becomes the sole ascending key.
	ModNone Modifier = iota
	// ModShift adds the column as a tie-breaker, or toggles it in place.
	ModShift
	// ModCtrl removes the column from the criteria (ctrl or cmd).
	ModCtrl
)

var modifierNames = []string{"none", "shift", "ctrl"}

func (m Modifier) String() string {
	if m >= 0 && int(m) < len(modifierNames) {
		return modifierNames[m]
	}
	return "unknown"
}

// UnmarshalText implements encoding.TextUnmarshaler. "meta" and "cmd" are ctrl.
func (m *Modifier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*m = ModNone
	case "shift":
		*m = ModShift
	case "ctrl", "meta", "cmd":
		*m = ModCtrl
	default:
		return ErrInvalidSort
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Modifier) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// NextSort returns the criteria that result from clicking column col's header
// with modifier mod. The input is not modified.
func NextSort(criteria []SortCriterion, col int, mod Modifier) []SortCriterion {
	idx := slices.IndexFunc(criteria, func(c SortCriterion) bool { return c.Column == col })

	switch mod {
	case ModShift:
		next := slices.Clone(criteria)
		if idx >= 0 {
			next[idx].Direction = next[idx].Direction.Toggle()
			return next
		}
		return append(next, SortCriterion{Column: col, Direction: Asc})

	case ModCtrl:
		if idx < 0 {
			return slices.Clone(criteria)
		}
		return slices.Delete(slices.Clone(criteria), idx, idx+1)

	default:
		if idx == 0 {
			return []SortCriterion{{Column: col, Direction: criteria[0].Direction.Toggle()}}
		}
		return []SortCriterion{{Column: col, Direction: Asc}}
	}
}
