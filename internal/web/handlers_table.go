package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridstate/internal/export"
	"github.com/JonMunkholm/gridstate/internal/fetch"
	"github.com/JonMunkholm/gridstate/internal/grid"
	"github.com/JonMunkholm/gridstate/internal/logging"
	"github.com/JonMunkholm/gridstate/internal/web/views"
)

// createRequest is the body of POST /api/tables. Omitted grid settings
// take the server's configured defaults.
type createRequest struct {
	grid.Config

	// SearchDebounceMS overrides the typed-search delay; 0 searches at once.
	SearchDebounceMS *int `json:"searchDebounceMs,omitempty"`

	// Source, when set, makes the table server-side and loads its pages
	// from the database.
	Source *fetch.Source `json:"source,omitempty"`
}

// SelectionState is the selection part of StateResponse.
type SelectionState struct {
	Mode     grid.SelectionMode `json:"mode"`
	IDs      []string           `json:"ids"`
	TriState grid.TriState      `json:"triState"`
}

// StateResponse is the full observable state of a table.
type StateResponse struct {
	ID            string         `json:"id"`
	Query         grid.Query     `json:"query"`
	View          grid.View      `json:"view"`
	Columns       []grid.Column  `json:"columns"`
	PageSizes     []int          `json:"pageSizes"`
	ServerSide    bool           `json:"serverSide"`
	SearchEnabled bool           `json:"searchEnabled"`
	SearchPending bool           `json:"searchPending"`
	Selection     SelectionState `json:"selection"`
	ColumnOrder   []int          `json:"columnOrder"`
	ColumnWidths  map[int]int    `json:"columnWidths"`
	Gesture       grid.Gesture   `json:"gesture"`
}

func stateOf(sess *Session) StateResponse {
	t := sess.Table
	return StateResponse{
		ID:            sess.ID,
		Query:         t.Query(),
		View:          t.View(),
		Columns:       t.Columns(),
		PageSizes:     t.PageSizes(),
		ServerSide:    t.ServerSide(),
		SearchEnabled: t.SearchEnabled(),
		SearchPending: t.SearchPending(),
		Selection: SelectionState{
			Mode:     t.SelectionMode(),
			IDs:      t.SelectedIDs(),
			TriState: t.TriState(),
		},
		ColumnOrder:  t.ColumnOrder(),
		ColumnWidths: t.ColumnWidths(),
		Gesture:      t.Gesture(),
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		// Row-shape errors from cell decoding keep their grid meaning.
		if errors.Is(err, grid.ErrRowShape) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// intParam parses a path parameter as an integer.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return v, nil
}

// applyDefaults fills settings the client left out from server config.
func (s *Server) applyDefaults(req *createRequest) {
	g := s.cfg.Grid
	if req.RowsPerPage == 0 {
		req.RowsPerPage = g.RowsPerPage
	}
	if len(req.PageSizes) == 0 {
		req.PageSizes = g.PageSizes
	}
	if req.RowHeight == 0 {
		req.RowHeight = g.RowHeight
	}
	if req.BufferRows == 0 {
		req.BufferRows = g.BufferRows
	}
	if req.Locale == "" {
		req.Locale = g.Locale
	}
	switch {
	case req.SearchDebounceMS != nil && *req.SearchDebounceMS <= 0:
		req.SearchDebounce = -1
	case req.SearchDebounceMS != nil:
		req.SearchDebounce = time.Duration(*req.SearchDebounceMS) * time.Millisecond
	case req.SearchDebounce == 0:
		req.SearchDebounce = g.SearchDebounce
	}
}

// handleCreateTable creates a table session from a JSON configuration.
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.applyDefaults(&req)

	if req.Source != nil {
		if s.fetcher == nil {
			respondError(w, r, ErrNoDatabase)
			return
		}
		if req.Source.Table == "" {
			respondError(w, r, fmt.Errorf("%w: missing table", fetch.ErrInvalidSource))
			return
		}
		req.ServerSide = true
	}

	id := NewID()
	log := logging.ForSession(id)
	req.Logger = log

	t, err := grid.NewTable(req.Config)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var stop func()
	if req.Source != nil {
		stop = fetch.Bind(s.ctx, t, s.fetcher, *req.Source, s.cfg.Database.FetchTimeout, log)
	}

	sess, err := s.sessions.Add(id, t, log, stop)
	if err != nil {
		if stop != nil {
			stop()
		}
		t.Close()
		respondError(w, r, err)
		return
	}

	log.Info("table session created",
		"columns", len(req.Columns),
		"rows", len(req.Rows),
		"server_side", req.ServerSide)
	writeJSON(w, http.StatusCreated, stateOf(sess))
}

// handleState returns the full state of a table.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateOf(sessionFrom(r)))
}

// handleDeleteTable closes a table session.
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.sessions.Delete(sess.ID); err != nil {
		respondError(w, r, err)
		return
	}
	sess.Log.Info("table session closed")
	w.WriteHeader(http.StatusNoContent)
}

// handleView returns only the current view.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Table.View())
}

// handleHTML renders the current view as an HTML table fragment.
func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	t := sessionFrom(r).Table
	data := views.TableData{
		View:     t.View(),
		Columns:  t.Columns(),
		Widths:   t.ColumnWidths(),
		Sort:     t.Sort(),
		Selected: t.SelectedIDs(),
		RowID:    t.RowID,
		Locale:   s.cfg.Grid.Locale,
		Search:   t.Search(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Table(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render table", "error", err)
	}
}

// handleAggregations returns column totals over the filtered rows.
func (s *Server) handleAggregations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Table.Aggregations())
}

// StatusResponse reports server load.
type StatusResponse struct {
	Tables  int           `json:"tables"`
	Exports export.Status `json:"exports"`
	Time    string        `json:"time"`
}

// handleStatus returns live table and export counts for monitoring.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Tables:  s.sessions.Len(),
		Exports: s.exporter.Limiter().Status(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
