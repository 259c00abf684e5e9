package grid

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// Defaults applied by NewTable to zero Config fields.
const (
	DefaultRowsPerPage = 10
	DefaultRowHeight   = 32
	DefaultBufferRows  = 5
)

// DefaultPageSizes are the rows-per-page choices offered when none are configured.
var DefaultPageSizes = []int{10, 25, 50, 100}

// Config is the initial configuration of a Table.
type Config struct {
	Columns  []Column `json:"columns"`
	Rows     []Row    `json:"rows"`
	IDColumn int      `json:"idColumn"` // Column holding each row's unique identifier

	RowsPerPage int   `json:"rowsPerPage"`
	PageSizes   []int `json:"pageSizes"`

	Mode           ViewMode `json:"mode"`
	RowHeight      float64  `json:"rowHeight"`
	BufferRows     int      `json:"bufferRows"`
	ViewportHeight float64  `json:"viewportHeight"` // Defaults to RowsPerPage rows

	Selection      SelectionMode   `json:"selection"`
	DisableSearch  bool            `json:"disableSearch"`
	SearchDebounce time.Duration   `json:"searchDebounce"`
	Sort           []SortCriterion `json:"sort"`

	// ServerSide skips local filtering, sorting and paging. Rows is the
	// current page and TotalRows the size of the whole result.
	ServerSide bool `json:"serverSide"`
	TotalRows  int  `json:"totalRows"`

	Locale string       `json:"locale"`
	Logger *slog.Logger `json:"-"`
}

// Table is the single authoritative state of one data table. Every mutator
// re-runs the derivation pipeline before returning, so queries always see a
// consistent view. Table is safe for concurrent use.
type Table struct {
	mu sync.Mutex

	columns []Column
	idCol   int
	locale  language.Tag
	log     *slog.Logger

	rows      []Row
	server    bool
	totalRows int

	page      int
	perPage   int
	pageSizes []int
	sort      []SortCriterion
	search    string
	filters   map[int]FilterState

	searchEnabled bool
	mode          ViewMode
	viewport      Viewport

	order  []int
	hidden map[int]bool
	widths map[int]int

	sel     *Selection
	gesture Gesture

	// Derived by refresh.
	filtered    []Row
	filteredIDs []string
	view        View

	bus      Bus
	debounce *Debouncer
	closed   bool
}

// NewTable validates cfg and returns a table showing its first page.
// cfg.Rows is deep-copied.
func NewTable(cfg Config) (*Table, error) {
	if len(cfg.Columns) == 0 {
		return nil, ErrNoColumns
	}
	for _, c := range cfg.Columns {
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	if cfg.IDColumn < 0 || cfg.IDColumn >= len(cfg.Columns) {
		return nil, fmt.Errorf("%w: id column %d out of range", ErrInvalidConfig, cfg.IDColumn)
	}

	pageSizes := slices.Clone(cfg.PageSizes)
	if len(pageSizes) == 0 {
		pageSizes = slices.Clone(DefaultPageSizes)
	}
	for _, n := range pageSizes {
		if n <= 0 {
			return nil, fmt.Errorf("%w: page size %d", ErrInvalidRowsPerPage, n)
		}
	}
	perPage := cfg.RowsPerPage
	if perPage == 0 {
		perPage = DefaultRowsPerPage
	}
	if perPage < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRowsPerPage, perPage)
	}
	if !slices.Contains(pageSizes, perPage) {
		pageSizes = append(pageSizes, perPage)
		slices.Sort(pageSizes)
	}

	if cfg.Selection < SelectMultiple || cfg.Selection > SelectDisabled {
		return nil, fmt.Errorf("%w: selection mode %s", ErrInvalidConfig, cfg.Selection)
	}
	if cfg.Mode != ModePaginate && cfg.Mode != ModeVirtual {
		return nil, fmt.Errorf("%w: view mode %d", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.TotalRows < 0 {
		return nil, fmt.Errorf("%w: total rows %d", ErrInvalidConfig, cfg.TotalRows)
	}

	rowHeight := cfg.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	buffer := cfg.BufferRows
	if buffer <= 0 {
		buffer = DefaultBufferRows
	}
	viewport := cfg.ViewportHeight
	if viewport <= 0 {
		viewport = rowHeight * float64(perPage)
	}
	delay := cfg.SearchDebounce
	if delay == 0 {
		delay = DefaultSearchDebounce
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "en-US"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	t := &Table{
		columns:       slices.Clone(cfg.Columns),
		idCol:         cfg.IDColumn,
		locale:        FormatterFor(locale).Tag(),
		log:           log,
		server:        cfg.ServerSide,
		totalRows:     cfg.TotalRows,
		page:          1,
		perPage:       perPage,
		pageSizes:     pageSizes,
		filters:       make(map[int]FilterState),
		searchEnabled: !cfg.DisableSearch,
		mode:          cfg.Mode,
		viewport:      Viewport{Height: viewport, RowHeight: rowHeight, BufferRows: buffer},
		order:         make([]int, len(cfg.Columns)),
		hidden:        make(map[int]bool),
		widths:        make(map[int]int),
		sel:           NewSelection(cfg.Selection),
		debounce:      NewDebouncer(delay),
	}
	for i, c := range t.columns {
		t.order[i] = i
		if c.Width > 0 {
			t.widths[i] = c.Width
		}
	}

	if err := t.validateSort(cfg.Sort); err != nil {
		return nil, err
	}
	t.sort = slices.Clone(cfg.Sort)

	if err := t.validateRows(cfg.Rows); err != nil {
		return nil, err
	}
	t.rows = cloneRows(cfg.Rows)

	t.refresh()
	return t, nil
}

// Subscribe registers fn for every event the table publishes and returns a
// function that removes it.
func (t *Table) Subscribe(fn Handler) (unsubscribe func()) {
	return t.bus.Subscribe(fn)
}

// Close cancels any pending debounced search, abandons an in-flight gesture
// and drops every subscriber. Mutators return ErrClosed afterwards. Close is
// idempotent.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.debounce.Stop()
	t.gesture = Gesture{}
	t.bus.close()
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Queries. Every result is a copy.

// View returns the current view.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.view
	v.Rows = cloneRows(v.Rows)
	v.Columns = slices.Clone(v.Columns)
	return v
}

// FilteredRows returns every row that passes the current search and filters,
// in sort order, across all pages. In server mode it is the loaded page.
func (t *Table) FilteredRows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRows(t.filtered)
}

// Rows returns the raw rows in load order.
func (t *Table) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRows(t.rows)
}

// TotalRows returns the number of filtered rows, or the server-supplied
// total in server mode.
func (t *Table) TotalRows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view.TotalRows
}

// Columns returns the column definitions in original order.
func (t *Table) Columns() []Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.columns)
}

// Query returns the current search, filters, sort and page.
func (t *Table) Query() Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.query()
}

// Search returns the global search term.
func (t *Table) Search() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.search
}

// Sort returns the sort criteria, primary first.
func (t *Table) Sort() []SortCriterion {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sort)
}

// Filters returns the column filters keyed by original column index.
func (t *Table) Filters() map[int]FilterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.query().Filters
}

// Page returns the current 1-based page.
func (t *Table) Page() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page
}

// RowsPerPage returns the page size.
func (t *Table) RowsPerPage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perPage
}

// PageSizes returns the allowed page sizes.
func (t *Table) PageSizes() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.pageSizes)
}

// ServerSide reports whether the table is in server mode.
func (t *Table) ServerSide() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.server
}

// SearchEnabled reports whether global search is available.
func (t *Table) SearchEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.searchEnabled
}

// SelectedIDs returns the selected row ids in selection order, including
// rows hidden by the current filters.
func (t *Table) SelectedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sel.IDs()
}

// IsSelected reports whether the row with id is selected.
func (t *Table) IsSelected(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sel.IsSelected(id)
}

// SelectionMode returns the selection mode.
func (t *Table) SelectionMode() SelectionMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sel.Mode()
}

// TriState returns the select-all state against the filtered rows.
func (t *Table) TriState() TriState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view.TriState
}

// ColumnOrder returns every original column index in display order,
// hidden columns included.
func (t *Table) ColumnOrder() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}

// VisibleColumns returns the shown original column indices in display order.
func (t *Table) VisibleColumns() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleColumns()
}

// ColumnWidths returns the width map, keyed by original index and the
// SelectColumnKey and ActionsColumnKey sentinels.
func (t *Table) ColumnWidths() map[int]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.widths)
}

// ColumnWidth returns the width of a column or sentinel key.
func (t *Table) ColumnWidth(key int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.widthOf(key)
}

// Gesture returns the in-flight gesture, if any.
func (t *Table) Gesture() Gesture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gesture
}

// RowID returns the identifier of a row.
func (t *Table) RowID(r Row) string {
	return cellAt(r, t.idCol).Text()
}

// IDColumn returns the index of the column holding row identifiers.
func (t *Table) IDColumn() int {
	return t.idCol
}

// Internal helpers. Callers hold t.mu.

func (t *Table) query() Query {
	return Query{
		Search:      t.search,
		Filters:     t.filters,
		Sort:        t.sort,
		Page:        t.page,
		RowsPerPage: t.perPage,
	}.clone()
}

func (t *Table) visibleColumns() []int {
	out := make([]int, 0, len(t.order))
	for _, c := range t.order {
		if !t.hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

func (t *Table) widthOf(key int) int {
	if w, ok := t.widths[key]; ok {
		return w
	}
	return DefaultColumnWidth
}

func (t *Table) validColumn(col int) error {
	if col < 0 || col >= len(t.columns) {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return nil
}

func (t *Table) validateSort(criteria []SortCriterion) error {
	seen := make(map[int]bool, len(criteria))
	for _, c := range criteria {
		if err := t.validColumn(c.Column); err != nil {
			return err
		}
		if !t.columns[c.Column].Sortable {
			return fmt.Errorf("%w: column %q", ErrNotSortable, t.columns[c.Column].Title)
		}
		if c.Direction != Asc && c.Direction != Desc {
			return fmt.Errorf("%w: direction %q", ErrInvalidSort, c.Direction)
		}
		if seen[c.Column] {
			return fmt.Errorf("%w: column %d sorted twice", ErrInvalidSort, c.Column)
		}
		seen[c.Column] = true
	}
	return nil
}

// validateRows checks every row's shape and that ids are unique.
func (t *Table) validateRows(rows []Row) error {
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		if err := t.validateRow(r); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		id := t.RowID(r)
		if j, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q in rows %d and %d", ErrDuplicateRowID, id, j, i)
		}
		seen[id] = i
	}
	return nil
}

func (t *Table) validateRow(r Row) error {
	if len(r) != len(t.columns) {
		return fmt.Errorf("%w: %d cells for %d columns", ErrRowShape, len(r), len(t.columns))
	}
	return nil
}

func (t *Table) indexOf(id string) int {
	return slices.IndexFunc(t.rows, func(r Row) bool { return t.RowID(r) == id })
}

// refresh re-runs the pipeline and clamps the page.
func (t *Table) refresh() {
	q := t.query()
	if t.server {
		t.filtered = cloneRows(t.rows)
		t.view = serverView(t.rows, t.totalRows, q)
	} else {
		p := Pipeline{Columns: t.columns, Mode: t.mode, Viewport: t.viewport, Locale: t.locale}
		t.filtered, t.view = p.Run(t.rows, q)
	}
	t.page = t.view.Page

	t.filteredIDs = make([]string, len(t.filtered))
	for i, r := range t.filtered {
		t.filteredIDs[i] = t.RowID(r)
	}
	t.view.TriState = t.sel.TriState(t.filteredIDs)
	t.view.Columns = t.visibleColumns()

	t.log.Debug("derived view",
		"rows", len(t.rows),
		"filtered", t.view.TotalRows,
		"page", t.view.Page,
		"start", t.view.Start,
		"end", t.view.End)
}
