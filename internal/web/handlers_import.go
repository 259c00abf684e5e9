package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/JonMunkholm/gridstate/internal/ingest"
)

// ImportResponse reports the outcome of a CSV import or preview.
type ImportResponse struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Errors   []ingest.RowError `json:"errors,omitempty"`
	Unknown  []string          `json:"unknownColumns,omitempty"`
	Bytes    int64             `json:"bytes"`
	Applied  bool              `json:"applied"`
	State    *StateResponse    `json:"state,omitempty"`
}

// handleImport loads a CSV file into the table. The body is either the raw
// file or a multipart form with a "file" field.
//
// Query parameters:
//   - mode: replace (default) swaps the table's rows; append adds to them
//   - delimiter: single-character field separator (default ",")
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.importCSV(w, r, true)
}

// handleImportPreview parses the file and reports what an import would do
// without touching the table.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	s.importCSV(w, r, false)
}

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request, apply bool) {
	sess := sessionFrom(r)
	t := sess.Table

	if t.ServerSide() {
		respondError(w, r, fmt.Errorf("%w: server-side tables load rows from their source", ErrBadRequest))
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "replace"
	}
	if mode != "replace" && mode != "append" {
		respondError(w, r, fmt.Errorf("%w: unknown import mode %q", ErrBadRequest, mode))
		return
	}

	opts := ingest.Options{
		Required: []int{t.IDColumn()},
		MaxRows:  s.cfg.Grid.ImportMaxRows,
	}
	if d := r.URL.Query().Get("delimiter"); d != "" {
		c, size := utf8.DecodeRuneInString(d)
		if size != len(d) || c == '"' || c == '\r' || c == '\n' {
			respondError(w, r, fmt.Errorf("%w: invalid delimiter %q", ErrBadRequest, d))
			return
		}
		opts.Comma = c
	}

	body, closeBody, err := s.uploadedFile(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeBody()

	res, err := ingest.Read(r.Context(), body, t.Columns(), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := ImportResponse{
		Imported: len(res.Rows),
		Skipped:  res.Skipped,
		Errors:   res.Errors,
		Unknown:  res.Unknown,
		Bytes:    res.Bytes,
	}
	if !apply {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	rows := res.Rows
	if mode == "append" {
		rows = append(t.Rows(), rows...)
	}
	if err := t.SetData(rows); err != nil {
		respondError(w, r, err)
		return
	}

	sess.Log.Info("csv imported",
		"mode", mode,
		"rows", resp.Imported,
		"skipped", resp.Skipped,
		"bytes", resp.Bytes,
	)
	state := stateOf(sess)
	resp.Applied = true
	resp.State = &state
	writeJSON(w, http.StatusOK, resp)
}

// uploadedFile returns the CSV stream of a request.
func (s *Server) uploadedFile(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(s.cfg.Server.MaxBodySize); err != nil {
		return nil, nil, fmt.Errorf("%w: file too large or invalid form", ErrBadRequest)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: no file provided", ErrBadRequest)
	}
	return file, func() { file.Close() }, nil
}
