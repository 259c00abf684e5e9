package ingest

import (
	"strings"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// convertRecord builds a row from one CSV record. Empty cells are null.
// Number, money, date and boolean columns must parse; other types keep the
// cleaned text.
func convertRecord(record []string, positions []int, columns []grid.Column) (grid.Row, *RowError) {
	row := make(grid.Row, len(columns))
	for i, col := range columns {
		pos := positions[i]
		if pos < 0 || pos >= len(record) {
			continue
		}
		raw := CleanCell(record[pos])
		if raw == "" {
			continue
		}

		c, ok := ToCell(raw, col.Type)
		if !ok {
			return nil, &RowError{
				Column:  col.Title,
				Value:   raw,
				Message: "not a valid " + col.Type.String(),
			}
		}
		row[i] = c
	}
	return row, nil
}

// ToCell converts cleaned text to a cell of type dt. ok is false when a
// typed value does not parse.
func ToCell(s string, dt grid.DataType) (grid.Cell, bool) {
	switch dt {
	case grid.TypeNumber, grid.TypeMoney:
		n, ok := grid.ParseNumber(s)
		if !ok {
			return grid.Null(), false
		}
		return grid.Num(n), true

	case grid.TypeDate:
		d, ok := grid.ParseDate(s)
		if !ok {
			return grid.Null(), false
		}
		return grid.Time(d), true

	case grid.TypeDateTime:
		t, ok := grid.ParseTime(s)
		if !ok {
			return grid.Null(), false
		}
		return grid.Time(t), true

	case grid.TypeBoolean:
		b, ok := ParseBool(s)
		if !ok {
			return grid.Null(), false
		}
		return grid.Bool(b), true

	default:
		return grid.Str(s), true
	}
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}
