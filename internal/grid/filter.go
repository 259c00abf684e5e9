package grid

import (
	"slices"
	"strings"
	"time"
)

// ApplyFilters returns the rows that match the global search term and every
// active column filter, in their original relative order. The input slice is
// not modified.
//
// A blank term disables global search. A filter whose operator needs an
// operand it does not have is inactive, as is a filter on a column whose
// filter kind is unknown.
func ApplyFilters(rows []Row, term string, filters map[int]FilterState, columns []Column) []Row {
	term = strings.ToLower(strings.TrimSpace(term))
	active := compileFilters(filters, columns)

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if term != "" && !matchesSearch(r, term, columns) {
			continue
		}
		if !matchesFilters(r, active) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchesSearch reports whether any searchable column contains term.
// term must already be lowercased and trimmed.
func matchesSearch(r Row, term string, columns []Column) bool {
	for i, col := range columns {
		if !col.Searchable || i >= len(r) {
			continue
		}
		if strings.Contains(strings.ToLower(r[i].Text()), term) {
			return true
		}
	}
	return false
}

func matchesFilters(r Row, active []compiledFilter) bool {
	for _, f := range active {
		var c Cell
		if f.column < len(r) {
			c = r[f.column]
		}
		if !f.match(c) {
			return false
		}
	}
	return true
}

// compiledFilter is a FilterState with its operands parsed once.
type compiledFilter struct {
	column int
	kind   FilterKind
	op     Operator

	text     string
	num      float64
	lo, hi   float64
	day      time.Time
	from, to time.Time
	members  map[string]struct{}
}

// compileFilters prepares the active filters in column order.
func compileFilters(filters map[int]FilterState, columns []Column) []compiledFilter {
	keys := make([]int, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	active := make([]compiledFilter, 0, len(keys))
	for _, k := range keys {
		if k < 0 || k >= len(columns) {
			continue
		}
		if cf, ok := compileFilter(k, filters[k], columns[k].Filter); ok {
			active = append(active, cf)
		}
	}
	return active
}

// compileFilter parses a filter's operands. ok is false for inactive filters.
func compileFilter(col int, f FilterState, kind FilterKind) (compiledFilter, bool) {
	op := f.Operator
	if op == "" {
		op = DefaultOperator(kind)
	}
	if !slices.Contains(operatorsByKind[kind], op) {
		return compiledFilter{}, false
	}

	cf := compiledFilter{column: col, kind: kind, op: op}
	if !op.needsValue() {
		return cf, true
	}

	switch kind {
	case FilterText:
		cf.text = strings.ToLower(strings.TrimSpace(f.Value))
		return cf, cf.text != ""

	case FilterNumber:
		if op == OpBetween {
			lo, okLo := ParseNumber(f.From)
			hi, okHi := ParseNumber(f.To)
			cf.lo, cf.hi = lo, hi
			return cf, okLo && okHi
		}
		n, ok := ParseNumber(f.Value)
		cf.num = n
		return cf, ok

	case FilterDate:
		if op == OpBetween {
			from, okFrom := ParseDate(f.From)
			to, okTo := ParseDate(f.To)
			cf.from, cf.to = from, to
			return cf, okFrom && okTo
		}
		d, ok := ParseDate(f.Value)
		cf.day = d
		return cf, ok

	case FilterMultiSelect:
		if len(f.Values) == 0 {
			return compiledFilter{}, false
		}
		cf.members = make(map[string]struct{}, len(f.Values))
		for _, v := range f.Values {
			cf.members[v] = struct{}{}
		}
		return cf, true
	}
	return compiledFilter{}, false
}

func (f compiledFilter) match(c Cell) bool {
	switch f.kind {
	case FilterText:
		return f.matchText(c)
	case FilterNumber:
		return f.matchNumber(c)
	case FilterDate:
		return f.matchDate(c)
	case FilterMultiSelect:
		_, ok := f.members[c.Text()]
		return ok
	}
	return true
}

func (f compiledFilter) matchText(c Cell) bool {
	v := strings.ToLower(strings.TrimSpace(c.Text()))
	switch f.op {
	case OpIsEmpty:
		return c.IsNull() || v == ""
	case OpIsNotEmpty:
		return !c.IsNull() && v != ""
	case OpContains:
		return strings.Contains(v, f.text)
	case OpNotContains:
		return !strings.Contains(v, f.text)
	case OpEquals:
		return v == f.text
	case OpStartsWith:
		return strings.HasPrefix(v, f.text)
	case OpEndsWith:
		return strings.HasSuffix(v, f.text)
	}
	return true
}

func (f compiledFilter) matchNumber(c Cell) bool {
	v, ok := c.Float()
	switch f.op {
	case OpIsEmpty:
		return !ok
	case OpIsNotEmpty:
		return ok
	}
	if !ok {
		return false
	}
	switch f.op {
	case OpEquals:
		return v == f.num
	case OpNotEquals:
		return v != f.num
	case OpGreaterThan:
		return v > f.num
	case OpLessThan:
		return v < f.num
	case OpGreaterThanOrEqual:
		return v >= f.num
	case OpLessThanOrEqual:
		return v <= f.num
	case OpBetween:
		return v >= f.lo && v <= f.hi
	}
	return true
}

func (f compiledFilter) matchDate(c Cell) bool {
	d, ok := c.Date()
	switch f.op {
	case OpIsEmpty:
		return !ok
	case OpIsNotEmpty:
		return ok
	}
	if !ok {
		return false
	}
	switch f.op {
	case OpEquals:
		return d.Equal(f.day)
	case OpNotEquals:
		return !d.Equal(f.day)
	case OpAfter:
		return d.After(f.day)
	case OpBefore:
		return d.Before(f.day)
	case OpAfterOrEqual:
		return !d.Before(f.day)
	case OpBeforeOrEqual:
		return !d.After(f.day)
	case OpBetween:
		return !d.Before(f.from) && !d.After(f.to)
	}
	return true
}

// isActive reports whether a filter would take part in ApplyFilters.
func isActive(f FilterState, kind FilterKind) bool {
	_, ok := compileFilter(0, f, kind)
	return ok
}
