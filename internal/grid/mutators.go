package grid

import (
	"fmt"
	"slices"
	"strings"
)

// mutate runs fn under the table lock, then delivers the events fn queued.
func (t *Table) mutate(fn func() error) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	err := fn()
	t.mu.Unlock()

	t.bus.flush()
	return err
}

func (t *Table) emit(name EventName, payload any) {
	t.bus.enqueue(name, payload)
}

// finish publishes the events every derive ends with: page-changed when the
// page moved away from prev, data-needed when a server must reload, and
// render-complete.
func (t *Table) finish(prev int, needData bool) {
	if t.page != prev {
		t.emit(EventPageChanged, PagePayload{
			Page:         t.page,
			PreviousPage: prev,
			TotalPages:   t.view.TotalPages,
			RowsPerPage:  t.perPage,
		})
	}
	if needData && t.server {
		t.emit(EventDataNeeded, t.query())
	}
	t.emit(EventRenderComplete, RenderPayload{
		Page:       t.view.Page,
		TotalPages: t.view.TotalPages,
		TotalRows:  t.view.TotalRows,
		Start:      t.view.Start,
		End:        t.view.End,
	})
}

func (t *Table) emitSelection() {
	t.emit(EventSelectionChanged, SelectionPayload{
		Selected: t.sel.IDs(),
		TriState: t.view.TriState,
	})
}

// SetSearch sets the global search term and returns to the first page.
// A pending debounced search is dropped.
func (t *Table) SetSearch(term string) error {
	return t.setSearch(term, true)
}

// setSearch applies term. The debounced path passes cancelPending false: a
// timer that already fired must not drop a newer keystroke's timer.
func (t *Table) setSearch(term string, cancelPending bool) error {
	return t.mutate(func() error {
		if !t.searchEnabled {
			return ErrSearchDisabled
		}
		if cancelPending {
			t.debounce.Cancel()
		}

		prev := t.page
		t.search = term
		t.page = 1
		t.refresh()

		t.emit(EventSearchPerformed, SearchPayload{Term: strings.TrimSpace(term), Results: t.view.TotalRows})
		t.finish(prev, true)
		return nil
	})
}

// InputSearch records a keystroke in the search box. The search runs once
// input has been quiet for the debounce delay; each call restarts the wait.
func (t *Table) InputSearch(term string) error {
	t.mu.Lock()
	closed, enabled := t.closed, t.searchEnabled
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !enabled {
		return ErrSearchDisabled
	}
	t.scheduleSearch(term)
	return nil
}

func (t *Table) scheduleSearch(term string) {
	t.debounce.Trigger(func() {
		if err := t.setSearch(term, false); err != nil {
			t.log.Debug("debounced search dropped", "term", term, "error", err)
		}
	})
}

// SearchPending reports whether a debounced search is waiting to run.
func (t *Table) SearchPending() bool {
	return t.debounce.Pending()
}

// SetFilter sets the filter on column col and returns to the first page.
// An empty operator means the column's default. A multiSelect filter with
// no values clears the column's filter.
func (t *Table) SetFilter(col int, f FilterState) error {
	return t.mutate(func() error {
		if err := t.validColumn(col); err != nil {
			return err
		}
		c := t.columns[col]
		if c.Filter == FilterNone {
			return fmt.Errorf("%w: column %q", ErrNotFilterable, c.Title)
		}
		if f.Operator == "" {
			f.Operator = DefaultOperator(c.Filter)
		}
		if !c.Allows(f.Operator) {
			return fmt.Errorf("%w: %q on column %q", ErrInvalidOperator, f.Operator, c.Title)
		}

		prev := t.page
		var payload *FilterState
		if f.Operator == OpIn && len(f.Values) == 0 {
			delete(t.filters, col)
		} else {
			f = f.clone()
			t.filters[col] = f
			payload = &f
		}
		t.page = 1
		t.refresh()

		t.emit(EventFilterChanged, FilterPayload{Column: col, Filter: payload, Results: t.view.TotalRows})
		t.finish(prev, true)
		return nil
	})
}

// ClearFilter removes column col's filter.
func (t *Table) ClearFilter(col int) error {
	return t.mutate(func() error {
		if err := t.validColumn(col); err != nil {
			return err
		}
		if _, ok := t.filters[col]; !ok {
			return nil
		}

		prev := t.page
		delete(t.filters, col)
		t.page = 1
		t.refresh()

		t.emit(EventFilterChanged, FilterPayload{Column: col, Results: t.view.TotalRows})
		t.finish(prev, true)
		return nil
	})
}

// ClearFilters removes every column filter. The search term is kept.
func (t *Table) ClearFilters() error {
	return t.mutate(func() error {
		if len(t.filters) == 0 {
			return nil
		}

		prev := t.page
		clear(t.filters)
		t.page = 1
		t.refresh()

		t.emit(EventFilterChanged, FilterPayload{Column: -1, Results: t.view.TotalRows})
		t.finish(prev, true)
		return nil
	})
}

// SetSort replaces the sort criteria. The current page is kept.
func (t *Table) SetSort(criteria []SortCriterion) error {
	return t.mutate(func() error {
		if err := t.validateSort(criteria); err != nil {
			return err
		}
		t.applySort(slices.Clone(criteria))
		return nil
	})
}

// ClickSort applies a header click on column col with modifier mod.
// See NextSort for the policy.
func (t *Table) ClickSort(col int, mod Modifier) error {
	return t.mutate(func() error {
		if err := t.validColumn(col); err != nil {
			return err
		}
		if !t.columns[col].Sortable {
			return fmt.Errorf("%w: column %q", ErrNotSortable, t.columns[col].Title)
		}
		t.applySort(NextSort(t.sort, col, mod))
		return nil
	})
}

func (t *Table) applySort(criteria []SortCriterion) {
	prev := t.page
	t.sort = criteria
	t.refresh()

	payload := SortPayload{Column: -1, Criteria: slices.Clone(criteria)}
	if len(criteria) > 0 {
		payload.Column = criteria[0].Column
		payload.Direction = criteria[0].Direction
	}
	t.emit(EventSortChanged, payload)
	t.finish(prev, true)
}

// SetPage moves to a 1-based page, clamped into range.
func (t *Table) SetPage(page int) error {
	return t.mutate(func() error {
		prev := t.page
		t.page = page
		t.refresh()
		t.finish(prev, t.page != prev)
		return nil
	})
}

// SetRowsPerPage changes the page size to one of PageSizes. The page is
// moved so the first row on screen stays on screen.
func (t *Table) SetRowsPerPage(n int) error {
	return t.mutate(func() error {
		if n <= 0 || !slices.Contains(t.pageSizes, n) {
			return fmt.Errorf("%w: %d", ErrInvalidRowsPerPage, n)
		}
		if n == t.perPage {
			return nil
		}

		prev := t.page
		first := (t.page - 1) * t.perPage
		t.perPage = n
		t.page = first/n + 1
		t.refresh()

		t.emit(EventRowsPerPageChanged, PagePayload{
			Page:         t.page,
			PreviousPage: prev,
			TotalPages:   t.view.TotalPages,
			RowsPerPage:  n,
		})
		t.finish(prev, true)
		return nil
	})
}

// SetScroll records the scroll offset of the table body. In virtual mode
// this moves the materialized window.
func (t *Table) SetScroll(offset float64) error {
	return t.mutate(func() error {
		prev := t.page
		t.viewport.Offset = max(offset, 0)
		t.refresh()

		t.emit(EventScrolled, ScrollPayload{
			Offset: t.viewport.Offset,
			Range:  Range{Start: t.view.Start, End: t.view.End},
		})
		t.finish(prev, false)
		return nil
	})
}

// SetViewportHeight records the height of the scrolling body.
func (t *Table) SetViewportHeight(h float64) error {
	return t.mutate(func() error {
		if h <= 0 {
			return fmt.Errorf("%w: viewport height %v", ErrInvalidConfig, h)
		}
		prev := t.page
		t.viewport.Height = h
		t.refresh()
		t.finish(prev, false)
		return nil
	})
}

// SetColumnOrder sets the display order. order must be a permutation of
// every original column index.
func (t *Table) SetColumnOrder(order []int) error {
	return t.mutate(func() error {
		if !isPermutation(order, len(t.columns)) {
			return fmt.Errorf("%w: %v", ErrInvalidOrder, order)
		}
		t.reorder(slices.Clone(order), -1)
		return nil
	})
}

// MoveColumn moves column col to display position to, shifting the
// columns in between.
func (t *Table) MoveColumn(col, to int) error {
	return t.mutate(func() error {
		if err := t.validColumn(col); err != nil {
			return err
		}
		if to < 0 || to >= len(t.columns) {
			return fmt.Errorf("%w: position %d", ErrInvalidOrder, to)
		}
		from := slices.Index(t.order, col)
		if from == to {
			return nil
		}
		t.reorder(moveColumn(t.order, from, to), col)
		return nil
	})
}

func (t *Table) reorder(order []int, col int) {
	prev := t.page
	t.order = order
	t.refresh()
	t.emit(EventColumnReordered, ColumnPayload{
		Column:  col,
		Visible: col < 0 || !t.hidden[col],
		Order:   slices.Clone(order),
	})
	t.finish(prev, false)
}

// SetColumnWidth sets the width of a column or of the SelectColumnKey and
// ActionsColumnKey sentinels.
func (t *Table) SetColumnWidth(key, width int) error {
	return t.mutate(func() error {
		if key != SelectColumnKey && key != ActionsColumnKey {
			if err := t.validColumn(key); err != nil {
				return err
			}
		}
		if width <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
		}
		t.resize(key, width)
		return nil
	})
}

func (t *Table) resize(key, width int) {
	prev := t.page
	t.widths[key] = width
	t.refresh()
	t.emit(EventColumnResized, ColumnPayload{Column: key, Width: width, Visible: !t.hidden[key]})
	t.finish(prev, false)
}

// SetColumnVisible shows or hides column col. Hidden columns keep their
// position in the column order.
func (t *Table) SetColumnVisible(col int, visible bool) error {
	return t.mutate(func() error {
		if err := t.validColumn(col); err != nil {
			return err
		}
		if t.hidden[col] == !visible {
			return nil
		}

		prev := t.page
		if visible {
			delete(t.hidden, col)
		} else {
			t.hidden[col] = true
		}
		t.refresh()

		t.emit(EventColumnVisibilityChanged, ColumnPayload{Column: col, Visible: visible, Order: t.visibleColumns()})
		t.finish(prev, false)
		return nil
	})
}

// ToggleRow flips the selection of the row with id. In single mode
// selecting a row deselects the previous one.
func (t *Table) ToggleRow(id string) error {
	return t.mutate(func() error {
		if t.sel.Mode() == SelectDisabled {
			return ErrSelectionDisabled
		}
		if t.indexOf(id) < 0 {
			return fmt.Errorf("%w: %q", ErrRowNotFound, id)
		}
		t.sel.Toggle(id)
		t.view.TriState = t.sel.TriState(t.filteredIDs)
		t.emitSelection()
		return nil
	})
}

// SelectAll selects every filtered row, on every page. Rows hidden by the
// current search or filters are not selected. In single mode only the
// first filtered row is selected.
func (t *Table) SelectAll() error {
	return t.mutate(func() error {
		if t.sel.Mode() == SelectDisabled {
			return ErrSelectionDisabled
		}
		t.sel.SelectAll(t.filteredIDs)
		t.view.TriState = t.sel.TriState(t.filteredIDs)
		t.emitSelection()
		return nil
	})
}

// DeselectAll clears the selection, hidden rows included.
func (t *Table) DeselectAll() error {
	return t.mutate(func() error {
		if t.sel.Mode() == SelectDisabled {
			return ErrSelectionDisabled
		}
		if t.sel.Len() == 0 {
			return nil
		}
		t.sel.DeselectAll()
		t.view.TriState = t.sel.TriState(t.filteredIDs)
		t.emitSelection()
		return nil
	})
}

// SetData replaces every row. rows is deep-copied. Selected ids that no
// longer exist are deselected. In server mode rows is the new current page
// and the total is unchanged.
func (t *Table) SetData(rows []Row) error {
	return t.mutate(func() error {
		if err := t.validateRows(rows); err != nil {
			return err
		}
		t.replaceRows(cloneRows(rows), "replace", !t.server)
		return nil
	})
}

// LoadServerPage installs a page fetched by a server along with the size of
// the whole result. It publishes data-needed only when the new total clamps
// the current page, since the rows then belong to a page no longer shown.
func (t *Table) LoadServerPage(rows []Row, total int) error {
	return t.mutate(func() error {
		if !t.server {
			return ErrNotServerMode
		}
		if total < 0 {
			return fmt.Errorf("%w: total rows %d", ErrInvalidConfig, total)
		}
		if err := t.validateRows(rows); err != nil {
			return err
		}
		t.totalRows = total
		t.replaceRows(cloneRows(rows), "load", false)
		return nil
	})
}

func (t *Table) replaceRows(rows []Row, action string, prune bool) {
	prev := t.page
	t.rows = rows

	pruned := false
	if prune {
		ids := make(map[string]bool, len(rows))
		for _, r := range rows {
			ids[t.RowID(r)] = true
		}
		pruned = t.sel.Retain(func(id string) bool { return ids[id] })
	}
	t.refresh()

	t.emit(EventDataChanged, DataPayload{Action: action, TotalRows: t.view.TotalRows})
	if pruned {
		t.emitSelection()
	}
	t.finish(prev, t.page != prev)
}

// InsertRow appends a row. Its id must be new.
func (t *Table) InsertRow(r Row) error {
	return t.mutate(func() error {
		if err := t.validateRow(r); err != nil {
			return err
		}
		id := t.RowID(r)
		if t.indexOf(id) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateRowID, id)
		}

		prev := t.page
		t.rows = append(t.rows, r.Clone())
		if t.server {
			t.totalRows++
		}
		t.refresh()

		t.emit(EventDataChanged, DataPayload{Action: "insert", ID: id, TotalRows: t.view.TotalRows})
		t.finish(prev, false)
		return nil
	})
}

// UpdateRow replaces the row with id. The replacement may change the id as
// long as it stays unique; a changed id is deselected.
func (t *Table) UpdateRow(id string, r Row) error {
	return t.mutate(func() error {
		i := t.indexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrRowNotFound, id)
		}
		if err := t.validateRow(r); err != nil {
			return err
		}
		newID := t.RowID(r)
		if newID != id && t.indexOf(newID) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateRowID, newID)
		}

		prev := t.page
		t.rows[i] = r.Clone()
		deselected := newID != id && t.sel.Deselect(id)
		t.refresh()

		t.emit(EventDataChanged, DataPayload{Action: "update", ID: newID, TotalRows: t.view.TotalRows})
		if deselected {
			t.emitSelection()
		}
		t.finish(prev, false)
		return nil
	})
}

// DeleteRow removes the row with id and deselects it.
func (t *Table) DeleteRow(id string) error {
	return t.mutate(func() error {
		i := t.indexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrRowNotFound, id)
		}

		prev := t.page
		t.rows = slices.Delete(t.rows, i, i+1)
		if t.server && t.totalRows > 0 {
			t.totalRows--
		}
		deselected := t.sel.Deselect(id)
		t.refresh()

		t.emit(EventDataChanged, DataPayload{Action: "delete", ID: id, TotalRows: t.view.TotalRows})
		if deselected {
			t.emitSelection()
		}
		t.finish(prev, false)
		return nil
	})
}

// BeginResize starts resizing a column or sentinel key from pointer position x.
func (t *Table) BeginResize(key int, x float64) error {
	return t.mutate(func() error {
		if t.gesture.Active() {
			return ErrGestureActive
		}
		if key != SelectColumnKey && key != ActionsColumnKey {
			if err := t.validColumn(key); err != nil {
				return err
			}
		}
		w := t.widthOf(key)
		t.gesture = Gesture{Kind: GestureResize, Column: key, StartX: x, StartWidth: w, Width: w}
		return nil
	})
}

// DragResize moves the resize pointer to x and returns the previewed width.
func (t *Table) DragResize(x float64) (int, error) {
	var w int
	err := t.mutate(func() error {
		if t.gesture.Kind != GestureResize {
			return ErrNoGesture
		}
		t.gesture.Width = t.gesture.resizeTo(x)
		w = t.gesture.Width
		return nil
	})
	return w, err
}

// BeginReorder starts dragging column col to a new display position.
func (t *Table) BeginReorder(col int) error {
	return t.mutate(func() error {
		if t.gesture.Active() {
			return ErrGestureActive
		}
		if err := t.validColumn(col); err != nil {
			return err
		}
		pos := slices.Index(t.order, col)
		t.gesture = Gesture{Kind: GestureReorder, Column: col, From: pos, Target: pos}
		return nil
	})
}

// DragReorder moves the drop target to display position target, clamped
// to the column range.
func (t *Table) DragReorder(target int) error {
	return t.mutate(func() error {
		if t.gesture.Kind != GestureReorder {
			return ErrNoGesture
		}
		t.gesture.Target = min(max(target, 0), len(t.order)-1)
		return nil
	})
}

// EndGesture commits the in-flight gesture and publishes column-resized or
// column-reordered.
func (t *Table) EndGesture() error {
	return t.mutate(func() error {
		g := t.gesture
		if !g.Active() {
			return ErrNoGesture
		}
		t.gesture = Gesture{}

		switch g.Kind {
		case GestureResize:
			if g.Width != t.widthOf(g.Column) {
				t.resize(g.Column, g.Width)
			}
		case GestureReorder:
			if from := slices.Index(t.order, g.Column); from != g.Target {
				t.reorder(moveColumn(t.order, from, g.Target), g.Column)
			}
		}
		return nil
	})
}

// CancelGesture abandons the in-flight gesture without changing the table.
func (t *Table) CancelGesture() error {
	return t.mutate(func() error {
		if !t.gesture.Active() {
			return ErrNoGesture
		}
		t.log.Debug("gesture cancelled", "kind", t.gesture.Kind, "column", t.gesture.Column)
		t.gesture = Gesture{}
		return nil
	})
}
