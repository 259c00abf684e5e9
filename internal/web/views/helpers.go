// Package views renders table views as HTML with templ components.
// Components live in .templ files; run `templ generate` after editing them.
package views

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// TableData is everything the table fragment needs.
type TableData struct {
	View     grid.View
	Columns  []grid.Column
	Widths   map[int]int
	Sort     []grid.SortCriterion
	Selected []string
	RowID    func(grid.Row) string
	Locale   string
	Search   string
}

// Position describes which rows of how many are shown.
func Position(v grid.View) string {
	if v.TotalRows == 0 {
		return "No rows"
	}
	return fmt.Sprintf("Showing %d to %d of %d rows, page %d of %d",
		v.Start+1, v.End, v.TotalRows, v.Page, v.TotalPages)
}

func emptyText(search string) string {
	if search != "" {
		return fmt.Sprintf("No rows match %q", search)
	}
	return "No rows"
}

// span is the colspan of full-width cells: the visible columns plus the
// selection column.
func (d TableData) span() string {
	return strconv.Itoa(len(d.View.Columns) + 1)
}

func (d TableData) idOf(row grid.Row) string {
	if d.RowID == nil {
		return ""
	}
	return d.RowID(row)
}

func (d TableData) isSelected(row grid.Row) bool {
	return slices.Contains(d.Selected, d.idOf(row))
}

func (d TableData) width(key, def int) string {
	if w, ok := d.Widths[key]; ok && w > 0 {
		return strconv.Itoa(w)
	}
	return strconv.Itoa(def)
}

// cell formats column col of row for the table's locale.
func (d TableData) cell(row grid.Row, col int) string {
	var c grid.Cell
	if col < len(row) {
		c = row[col]
	}
	return grid.FormatterFor(d.Locale).Format(c, d.Columns[col].Type)
}

// sortDir is the aria-sort value of col, empty when col is unsorted.
func (d TableData) sortDir(col int) string {
	i := slices.IndexFunc(d.Sort, func(s grid.SortCriterion) bool { return s.Column == col })
	if i < 0 {
		return ""
	}
	if d.Sort[i].Direction == grid.Desc {
		return "descending"
	}
	return "ascending"
}

// sortMarker is the arrow after a sorted column's title, numbered when
// several columns are sorted.
func (d TableData) sortMarker(col int) string {
	i := slices.IndexFunc(d.Sort, func(s grid.SortCriterion) bool { return s.Column == col })
	if i < 0 {
		return ""
	}
	marker := " ▲"
	if d.Sort[i].Direction == grid.Desc {
		marker = " ▼"
	}
	if len(d.Sort) > 1 {
		marker += strconv.Itoa(i + 1)
	}
	return marker
}
