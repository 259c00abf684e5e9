package grid

import (
	"maps"
	"slices"

	"golang.org/x/text/language"
)

// Query is the desired state that decides which rows are shown. It is also
// the payload of data-needed, telling a server-side fetcher what to load.
type Query struct {
	Search      string              `json:"search"`
	Filters     map[int]FilterState `json:"filters"`
	Sort        []SortCriterion     `json:"sort"`
	Page        int                 `json:"page"`
	RowsPerPage int                 `json:"rowsPerPage"`
}

// Offset returns the index of the first row on the query's page.
func (q Query) Offset() int {
	return max(q.Page-1, 0) * max(q.RowsPerPage, 0)
}

func (q Query) clone() Query {
	q.Filters = maps.Clone(q.Filters)
	for k, f := range q.Filters {
		q.Filters[k] = f.clone()
	}
	q.Sort = slices.Clone(q.Sort)
	return q
}

// View is the current view: exactly the rows a renderer must display, in
// display order, plus the counters it needs around them.
type View struct {
	Rows []Row `json:"rows"`

	// Start and End locate Rows within the filtered and sorted rows.
	Start int `json:"start"`
	End   int `json:"end"`

	Page        int      `json:"page"`
	TotalPages  int      `json:"totalPages"`
	RowsPerPage int      `json:"rowsPerPage"`
	TotalRows   int      `json:"totalRows"`
	Mode        ViewMode `json:"mode"`
	Empty       bool     `json:"empty"`

	TriState TriState `json:"triState"`
	Columns  []int    `json:"columns"` // Visible columns in display order

	// Virtual mode only.
	OffsetTop    float64 `json:"offsetTop,omitempty"`
	ScrollHeight float64 `json:"scrollHeight,omitempty"`
}

// Viewport describes the scrolling body for virtual mode.
type Viewport struct {
	Offset     float64
	Height     float64
	RowHeight  float64
	BufferRows int
}

// Pipeline derives views from raw rows. It holds no state between runs.
type Pipeline struct {
	Columns  []Column
	Mode     ViewMode
	Viewport Viewport
	Locale   language.Tag
}

// Run filters, sorts, then paginates or virtualizes rows for q. It returns
// the filtered and sorted rows and the view over them. q.Page is clamped
// into range; the view reports the clamped page. rows is not modified.
func (p Pipeline) Run(rows []Row, q Query) ([]Row, View) {
	filtered := ApplyFilters(rows, q.Search, q.Filters, p.Columns)
	sorted := SortRowsIn(p.Locale, filtered, q.Sort, p.Columns)

	n := len(sorted)
	v := View{
		RowsPerPage: q.RowsPerPage,
		TotalRows:   n,
		TotalPages:  TotalPages(n, q.RowsPerPage),
		Page:        ClampPage(q.Page, n, q.RowsPerPage),
		Mode:        p.Mode,
	}

	switch p.Mode {
	case ModeVirtual:
		vp := p.Viewport
		r := VisibleRange(n, vp.Offset, vp.Height, vp.RowHeight, vp.BufferRows)
		v.Start, v.End = r.Start, r.End
		v.OffsetTop = OffsetTop(r, vp.RowHeight)
		v.ScrollHeight = ScrollHeight(n, vp.RowHeight)
	default:
		v.Start, v.End = PageBounds(n, v.Page, q.RowsPerPage)
	}

	v.Rows = make([]Row, v.End-v.Start)
	copy(v.Rows, sorted[v.Start:v.End])
	v.Empty = len(v.Rows) == 0
	return sorted, v
}

// serverView wraps an already-processed page supplied by a server.
func serverView(rows []Row, total int, q Query) View {
	total = max(total, len(rows))
	page := ClampPage(q.Page, total, q.RowsPerPage)
	start := min(Query{Page: page, RowsPerPage: q.RowsPerPage}.Offset(), total)
	return View{
		Rows:        slices.Clone(rows),
		Start:       start,
		End:         start + len(rows),
		Page:        page,
		TotalPages:  TotalPages(total, q.RowsPerPage),
		RowsPerPage: q.RowsPerPage,
		TotalRows:   total,
		Mode:        ModePaginate,
		Empty:       len(rows) == 0,
	}
}
