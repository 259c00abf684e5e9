package web

// handlers_mutations.go exposes every table mutator as a JSON endpoint.
// Each handler decodes its body, applies the mutation and answers with the
// table's new state, or with an ErrorResponse when the table rejected it.

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// apply runs fn against the request's table and writes the resulting state.
func apply(w http.ResponseWriter, r *http.Request, fn func(t *grid.Table) error) {
	sess := sessionFrom(r)
	if err := fn(sess.Table); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// applyBody decodes a T from the body and then behaves like apply.
func applyBody[T any](w http.ResponseWriter, r *http.Request, fn func(t *grid.Table, body T) error) {
	var body T
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	apply(w, r, func(t *grid.Table) error { return fn(t, body) })
}

// applyCol parses the {col} path parameter and then behaves like applyBody.
func applyCol[T any](w http.ResponseWriter, r *http.Request, fn func(t *grid.Table, col int, body T) error) {
	col, err := intParam(r, "col")
	if err != nil {
		respondError(w, r, err)
		return
	}
	applyBody(w, r, func(t *grid.Table, body T) error { return fn(t, col, body) })
}

type searchRequest struct {
	Term string `json:"term"`
	// Debounce delays the search as if typed; otherwise it runs at once.
	Debounce bool `json:"debounce"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b searchRequest) error {
		if b.Debounce {
			return t.InputSearch(b.Term)
		}
		return t.SetSearch(b.Term)
	})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	applyCol(w, r, func(t *grid.Table, col int, f grid.FilterState) error {
		return t.SetFilter(col, f)
	})
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	col, err := intParam(r, "col")
	if err != nil {
		respondError(w, r, err)
		return
	}
	apply(w, r, func(t *grid.Table) error { return t.ClearFilter(col) })
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	apply(w, r, (*grid.Table).ClearFilters)
}

type sortRequest struct {
	Criteria []grid.SortCriterion `json:"criteria"`
}

func (s *Server) handleSetSort(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b sortRequest) error {
		return t.SetSort(b.Criteria)
	})
}

type clickSortRequest struct {
	Column   int           `json:"columnIndex"`
	Modifier grid.Modifier `json:"modifier"`
}

func (s *Server) handleClickSort(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b clickSortRequest) error {
		return t.ClickSort(b.Column, b.Modifier)
	})
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		Page int `json:"page"`
	}) error {
		return t.SetPage(b.Page)
	})
}

func (s *Server) handleSetRowsPerPage(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		RowsPerPage int `json:"rowsPerPage"`
	}) error {
		return t.SetRowsPerPage(b.RowsPerPage)
	})
}

func (s *Server) handleSetScroll(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		Offset float64 `json:"offset"`
	}) error {
		return t.SetScroll(b.Offset)
	})
}

func (s *Server) handleSetViewport(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		Height float64 `json:"height"`
	}) error {
		return t.SetViewportHeight(b.Height)
	})
}

func (s *Server) handleSetColumnOrder(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		Order []int `json:"order"`
	}) error {
		return t.SetColumnOrder(b.Order)
	})
}

func (s *Server) handleMoveColumn(w http.ResponseWriter, r *http.Request) {
	applyCol(w, r, func(t *grid.Table, col int, b struct {
		To int `json:"to"`
	}) error {
		return t.MoveColumn(col, b.To)
	})
}

func (s *Server) handleSetColumnWidth(w http.ResponseWriter, r *http.Request) {
	applyCol(w, r, func(t *grid.Table, col int, b struct {
		Width int `json:"width"`
	}) error {
		return t.SetColumnWidth(col, b.Width)
	})
}

func (s *Server) handleSetColumnVisible(w http.ResponseWriter, r *http.Request) {
	applyCol(w, r, func(t *grid.Table, col int, b struct {
		Visible bool `json:"visible"`
	}) error {
		return t.SetColumnVisible(col, b.Visible)
	})
}

func (s *Server) handleToggleRow(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b struct {
		ID string `json:"id"`
	}) error {
		return t.ToggleRow(b.ID)
	})
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	apply(w, r, (*grid.Table).SelectAll)
}

func (s *Server) handleDeselectAll(w http.ResponseWriter, r *http.Request) {
	apply(w, r, (*grid.Table).DeselectAll)
}

type rowsRequest struct {
	Rows []grid.Row `json:"rows"`
}

type rowRequest struct {
	Row grid.Row `json:"row"`
}

func (s *Server) handleSetData(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b rowsRequest) error {
		return t.SetData(b.Rows)
	})
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b rowRequest) error {
		return t.InsertRow(b.Row)
	})
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "rowID")
	applyBody(w, r, func(t *grid.Table, b rowRequest) error {
		return t.UpdateRow(id, b.Row)
	})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "rowID")
	apply(w, r, func(t *grid.Table) error { return t.DeleteRow(id) })
}

type serverPageRequest struct {
	Rows      []grid.Row `json:"rows"`
	TotalRows int        `json:"totalRows"`
}

func (s *Server) handleLoadServerPage(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b serverPageRequest) error {
		return t.LoadServerPage(b.Rows, b.TotalRows)
	})
}

type gestureRequest struct {
	Column int      `json:"columnIndex"`
	X      *float64 `json:"x,omitempty"`
	Target *int     `json:"target,omitempty"`
}

func (s *Server) handleBeginResize(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b gestureRequest) error {
		var x float64
		if b.X != nil {
			x = *b.X
		}
		return t.BeginResize(b.Column, x)
	})
}

func (s *Server) handleBeginReorder(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b gestureRequest) error {
		return t.BeginReorder(b.Column)
	})
}

// handleDrag moves the active gesture: x for a resize, target for a
// reorder.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	applyBody(w, r, func(t *grid.Table, b gestureRequest) error {
		switch {
		case b.X != nil:
			_, err := t.DragResize(*b.X)
			return err
		case b.Target != nil:
			return t.DragReorder(*b.Target)
		}
		return ErrBadRequest
	})
}

func (s *Server) handleEndGesture(w http.ResponseWriter, r *http.Request) {
	apply(w, r, (*grid.Table).EndGesture)
}

func (s *Server) handleCancelGesture(w http.ResponseWriter, r *http.Request) {
	apply(w, r, (*grid.Table).CancelGesture)
}
