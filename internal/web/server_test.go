package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/gridstate/internal/config"
	"github.com/JonMunkholm/gridstate/internal/export"
	"github.com/JonMunkholm/gridstate/internal/fetch"
	"github.com/JonMunkholm/gridstate/internal/grid"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodySize: 1 << 20},
		Grid: config.GridConfig{
			RowsPerPage:    10,
			PageSizes:      []int{2, 10, 25},
			SearchDebounce: 300 * time.Millisecond,
			RowHeight:      32,
			BufferRows:     5,
			Locale:         "en-US",
			MaxSessions:    10,
			SessionTTL:     time.Minute,
		},
		Export: config.ExportConfig{MaxConcurrent: 2, MaxWaitTime: time.Second, FlushEvery: 10},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, f fetch.Fetcher) *Server {
	t.Helper()
	sessions := NewSessions(cfg.Grid.MaxSessions, cfg.Grid.SessionTTL)
	exporter := export.NewExporter(export.NewLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWaitTime), cfg.Export.FlushEvery, nil)
	s := NewServer(cfg, sessions, exporter, f)
	t.Cleanup(func() {
		sessions.CloseAll()
		s.Shutdown(context.Background())
	})
	return s
}

const peopleTable = `{
	"columns": [
		{"title": "ID", "dataType": "number"},
		{"title": "Name", "dataType": "string", "filterKind": "text"},
		{"title": "Age", "dataType": "number", "filterKind": "number"},
		{"title": "Secret <b>", "dataType": "string", "sortable": false}
	],
	"rows": [
		[1, "Cara", 30, "x"],
		[2, "ann", 25, "y"],
		[3, "Bob", 41, null]
	],
	"rowsPerPage": 2,
	"searchDebounceMs": 0
}`

// do sends a request to the server's router and decodes a JSON response
// into out when out is non-nil.
func do(t *testing.T, s *Server, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func createPeople(t *testing.T, s *Server) StateResponse {
	t.Helper()
	var st StateResponse
	rec := do(t, s, http.MethodPost, "/api/tables/", peopleTable, &st)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	return st
}

func names(v grid.View) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r[1].Text()
	}
	return out
}

func TestCreateTable(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	st := createPeople(t, s)

	if st.ID == "" {
		t.Fatal("created table has no id")
	}
	if st.View.TotalRows != 3 || st.View.TotalPages != 2 {
		t.Errorf("view totals = %d rows, %d pages, want 3, 2", st.View.TotalRows, st.View.TotalPages)
	}
	if got := strings.Join(names(st.View), ","); got != "Cara,ann" {
		t.Errorf("first page = %s, want Cara,ann", got)
	}
	if st.Query.RowsPerPage != 2 {
		t.Errorf("rowsPerPage = %d, want 2", st.Query.RowsPerPage)
	}
	if s.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", s.sessions.Len())
	}
}

func TestCreateTable_Invalid(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name     string
		body     string
		wantCode string
		status   int
	}{
		{"empty body", "", "WEB007", http.StatusBadRequest},
		{"unknown field", `{"columns":[{"title":"A"}],"bogus":1}`, "WEB007", http.StatusBadRequest},
		{"no columns", `{"columns":[]}`, "CFG002", http.StatusBadRequest},
		{"row shape", `{"columns":[{"title":"A"}],"rows":[[1,2]]}`, "CFG003", http.StatusBadRequest},
		{"nested cell", `{"columns":[{"title":"A"}],"rows":[[[1]]]}`, "CFG003", http.StatusBadRequest},
		{"source without database", `{"columns":[{"title":"A"}],"source":{"table":"t"}}`, "WEB005", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			rec := do(t, s, http.MethodPost, "/api/tables/", tt.body, &resp)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s (message %q)", resp.Code, tt.wantCode, resp.Message)
			}
		})
	}
}

func TestTableMutations(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createPeople(t, s).ID
	base := "/api/tables/" + id

	var st StateResponse
	do(t, s, http.MethodPost, base+"/sort/click", `{"columnIndex":1}`, &st)
	if got := strings.Join(names(st.View), ","); got != "ann,Bob" {
		t.Errorf("after sort by name = %s, want ann,Bob", got)
	}

	do(t, s, http.MethodPut, base+"/page", `{"page":9}`, &st)
	if st.View.Page != 2 || strings.Join(names(st.View), ",") != "Cara" {
		t.Errorf("page 9 clamps to 2 = page %d %v", st.View.Page, names(st.View))
	}

	do(t, s, http.MethodPost, base+"/search", `{"term":"an"}`, &st)
	if st.View.Page != 1 || strings.Join(names(st.View), ",") != "ann" {
		t.Errorf("search an = page %d %v, want page 1 [ann]", st.View.Page, names(st.View))
	}

	do(t, s, http.MethodDelete, base+"/filters", "", nil)
	do(t, s, http.MethodPost, base+"/search", `{"term":""}`, nil)
	do(t, s, http.MethodPut, base+"/filters/2", `{"operator":"between","from":"26","to":"45"}`, &st)
	if st.View.TotalRows != 2 {
		t.Errorf("age between 26 and 45 = %d rows, want 2", st.View.TotalRows)
	}

	do(t, s, http.MethodPost, base+"/selection/all", "", &st)
	if st.Selection.TriState != grid.TriAll || len(st.Selection.IDs) != 2 {
		t.Errorf("select all = %v %v, want all of 2", st.Selection.TriState, st.Selection.IDs)
	}
	do(t, s, http.MethodPost, base+"/selection/toggle", `{"id":"3"}`, &st)
	if st.Selection.TriState != grid.TriSome {
		t.Errorf("after toggle tri-state = %v, want some", st.Selection.TriState)
	}

	do(t, s, http.MethodPut, base+"/columns/-1/width", `{"width":60}`, &st)
	if st.ColumnWidths[grid.SelectColumnKey] != 60 {
		t.Errorf("select column width = %d, want 60", st.ColumnWidths[grid.SelectColumnKey])
	}
	do(t, s, http.MethodPost, base+"/columns/2/move", `{"to":0}`, &st)
	if st.ColumnOrder[0] != 2 {
		t.Errorf("column order = %v, want age first", st.ColumnOrder)
	}

	do(t, s, http.MethodPost, base+"/rows", `{"row":[4,"Dee",33,"z"]}`, &st)
	if st.View.TotalRows != 3 {
		t.Errorf("after insert filtered rows = %d, want 3", st.View.TotalRows)
	}
	rec := do(t, s, http.MethodDelete, base+"/rows/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing row status = %d, want 404", rec.Code)
	}
}

func TestTableErrors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createPeople(t, s).ID
	base := "/api/tables/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown session", http.MethodGet, "/api/tables/00000000-0000-0000-0000-000000000000/", "", http.StatusNotFound, "WEB001"},
		{"malformed session", http.MethodGet, "/api/tables/nope/view", "", http.StatusNotFound, "WEB001"},
		{"not sortable", http.MethodPost, base + "/sort/click", `{"columnIndex":3}`, http.StatusBadRequest, "GRID002"},
		{"bad column", http.MethodPut, base + "/filters/x", `{}`, http.StatusBadRequest, "WEB007"},
		{"no filter", http.MethodPut, base + "/filters/0", `{"value":"1"}`, http.StatusBadRequest, "GRID003"},
		{"page size", http.MethodPut, base + "/rows-per-page", `{"rowsPerPage":7}`, http.StatusBadRequest, "GRID006"},
		{"bad modifier", http.MethodPost, base + "/sort/click", `{"columnIndex":1,"modifier":"alt"}`, http.StatusBadRequest, "WEB007"},
		{"no gesture", http.MethodPost, base + "/gesture/end", "", http.StatusBadRequest, "GRID013"},
		{"not server mode", http.MethodPut, base + "/server-page", `{"rows":[],"totalRows":0}`, http.StatusBadRequest, "GRID014"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			rec := do(t, s, tt.method, tt.path, tt.body, &resp)
			if rec.Code != tt.status || resp.Code != tt.code {
				t.Errorf("got %d %s, want %d %s (%s)", rec.Code, resp.Code, tt.status, tt.code, rec.Body)
			}
		})
	}
}

func TestGestureEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	base := "/api/tables/" + createPeople(t, s).ID

	var st StateResponse
	do(t, s, http.MethodPost, base+"/gesture/resize", `{"columnIndex":1,"x":100}`, &st)
	if !st.Gesture.Active() {
		t.Fatal("resize gesture not active")
	}
	rec := do(t, s, http.MethodPost, base+"/gesture/reorder", `{"columnIndex":2}`, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second gesture status = %d, want 409", rec.Code)
	}
	do(t, s, http.MethodPost, base+"/gesture/drag", `{"x":150}`, nil)
	do(t, s, http.MethodPost, base+"/gesture/end", "", &st)
	if st.ColumnWidths[1] != grid.DefaultColumnWidth+50 {
		t.Errorf("width after drag = %d, want %d", st.ColumnWidths[1], grid.DefaultColumnWidth+50)
	}
	if st.Gesture.Active() {
		t.Error("gesture still active after end")
	}
}

func TestDeleteTable(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	base := "/api/tables/" + createPeople(t, s).ID

	if rec := do(t, s, http.MethodDelete, base+"/", "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, base+"/view", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("view after delete status = %d, want 404", rec.Code)
	}
}

func TestHTML(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	base := "/api/tables/" + createPeople(t, s).ID
	do(t, s, http.MethodPost, base+"/sort/click", `{"columnIndex":2,"modifier":"shift"}`, nil)

	rec := do(t, s, http.MethodGet, base+"/html", "", nil)
	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, want := range []string{
		"Secret &lt;b&gt;",
		`aria-sort="ascending"`,
		`data-id="2"`,
		"Showing 1 to 2 of 3 rows, page 1 of 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("html missing %q:\n%s", want, body)
		}
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	base := "/api/tables/" + createPeople(t, s).ID
	do(t, s, http.MethodPut, base+"/columns/3/visible", `{"visible":false}`, nil)
	do(t, s, http.MethodPut, base+"/sort", `{"criteria":[{"columnIndex":2,"direction":"desc"}]}`, nil)

	rec := do(t, s, http.MethodGet, base+"/export?format=csv&name=people!", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="people_`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv records = %d, want header + 3", len(records))
	}
	if got := strings.Join(records[0], ","); got != "ID,Name,Age" {
		t.Errorf("header = %s", got)
	}
	if got := records[1][1]; got != "Bob" {
		t.Errorf("first exported name = %s, want Bob (oldest first)", got)
	}

	var resp ErrorResponse
	rec = do(t, s, http.MethodGet, base+"/export?format=xlsx", "", &resp)
	if rec.Code != http.StatusBadRequest || resp.Code != "WEB004" {
		t.Errorf("xlsx export = %d %s, want 400 WEB004", rec.Code, resp.Code)
	}
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createPeople(t, s).ID

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/tables/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || lines.Text() != ": connected" {
		t.Fatalf("first line = %q, want connection comment", lines.Text())
	}

	search, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/tables/"+id+"/search", strings.NewReader(`{"term":"bob"}`))
	if r, err := http.DefaultClient.Do(search); err != nil {
		t.Fatalf("POST search: %v", err)
	} else {
		r.Body.Close()
	}

	var got []string
	for lines.Scan() {
		line := lines.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			got = append(got, name)
			if name == string(grid.EventRenderComplete) {
				break
			}
		}
	}
	want := []string{string(grid.EventSearchPerformed), string(grid.EventRenderComplete)}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestStatusAndHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	createPeople(t, s)

	var st StatusResponse
	do(t, s, http.MethodGet, "/api/status", "", &st)
	if st.Tables != 1 || st.Exports.MaxConcurrent != 2 {
		t.Errorf("status = %+v", st)
	}
	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer key status = %d, want 200", rec.Code)
	}

	// Health stays open.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, ExportLimit: 1}
	s := newTestServer(t, cfg, nil)

	codes := make([]int, 5)
	for i := range codes {
		codes[i] = do(t, s, http.MethodGet, "/healthz", "", nil).Code
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusOK {
		t.Errorf("first requests = %v, want 200", codes)
	}
	if codes[4] != http.StatusTooManyRequests {
		t.Errorf("fifth request = %d, want 429", codes[4])
	}
}

// stubFetcher serves a fixed page.
type stubFetcher struct{ rows []grid.Row }

func (f stubFetcher) Fetch(context.Context, fetch.Source, []grid.Column, grid.Query) ([]grid.Row, int, error) {
	return f.rows, 40, nil
}

func TestCreateServerSideTable(t *testing.T) {
	s := newTestServer(t, testConfig(), stubFetcher{rows: []grid.Row{grid.Values(1, "a"), grid.Values(2, "b")}})

	var st StateResponse
	body := `{"columns":[{"title":"ID"},{"title":"Name"}],"rowsPerPage":2,"source":{"table":"people"}}`
	if rec := do(t, s, http.MethodPost, "/api/tables/", body, &st); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	if !st.ServerSide {
		t.Error("table with source is not server-side")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		do(t, s, http.MethodGet, "/api/tables/"+st.ID+"/", "", &st)
		if st.View.TotalRows == 40 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if st.View.TotalRows != 40 || st.View.TotalPages != 20 {
		t.Errorf("server view = %d rows, %d pages, want 40, 20", st.View.TotalRows, st.View.TotalPages)
	}
}
