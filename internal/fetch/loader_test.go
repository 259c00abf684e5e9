package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// memoryFetcher serves pages from an in-memory list of names.
type memoryFetcher struct {
	names []string

	mu      sync.Mutex
	calls   []grid.Query
	gate    chan struct{} // when set, the next fetch blocks until closed or cancelled
	gateFor string
}

func (m *memoryFetcher) Fetch(ctx context.Context, _ Source, _ []grid.Column, q grid.Query) ([]grid.Row, int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	gate := m.gate
	if gate != nil && q.Search != m.gateFor {
		gate = nil
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	var matched []string
	for _, n := range m.names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(q.Search)) {
			matched = append(matched, n)
		}
	}
	start := min(q.Offset(), len(matched))
	end := min(start+q.RowsPerPage, len(matched))

	rows := make([]grid.Row, 0, end-start)
	for i, n := range matched[start:end] {
		rows = append(rows, grid.Values(fmt.Sprint(start+i), n))
	}
	return rows, len(matched), nil
}

func (m *memoryFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func serverTable(t *testing.T) *grid.Table {
	t.Helper()
	tb, err := grid.NewTable(grid.Config{
		Columns: []grid.Column{
			grid.NewColumn("ID", grid.TypeString),
			grid.NewColumn("Name", grid.TypeString),
		},
		RowsPerPage: 2,
		ServerSide:  true,
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	t.Cleanup(tb.Close)
	return tb
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func viewNames(v grid.View) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r[1].Text()
	}
	return out
}

func TestBind_LoadsInitialAndRequestedPages(t *testing.T) {
	tb := serverTable(t)
	f := &memoryFetcher{names: []string{"ann", "Bob", "Cara", "dan", "Eve"}}

	stop := Bind(context.Background(), tb, f, Source{Table: "people"}, time.Second, nil)
	defer stop()

	waitFor(t, "initial page", func() bool { return tb.TotalRows() == 5 })
	if got := viewNames(tb.View()); strings.Join(got, ",") != "ann,Bob" {
		t.Errorf("page 1 = %v, want [ann Bob]", got)
	}

	if err := tb.SetPage(3); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	waitFor(t, "page 3", func() bool { return len(tb.View().Rows) == 1 })
	if got := viewNames(tb.View()); strings.Join(got, ",") != "Eve" {
		t.Errorf("page 3 = %v, want [Eve]", got)
	}

	if err := tb.SetSearch("an"); err != nil {
		t.Fatalf("SetSearch: %v", err)
	}
	waitFor(t, "search results", func() bool { return tb.TotalRows() == 2 })
	v := tb.View()
	if v.Page != 1 || strings.Join(viewNames(v), ",") != "ann,dan" {
		t.Errorf("search view = page %d %v, want page 1 [ann dan]", v.Page, viewNames(v))
	}
}

func TestBind_DropsSupersededFetch(t *testing.T) {
	tb := serverTable(t)
	f := &memoryFetcher{
		names:   []string{"ann", "Bob", "Cara"},
		gate:    make(chan struct{}),
		gateFor: "a",
	}

	stop := Bind(context.Background(), tb, f, Source{Table: "people"}, time.Second, nil)
	defer stop()
	waitFor(t, "initial page", func() bool { return tb.TotalRows() == 3 })

	_ = tb.SetSearch("a") // blocks in the fetcher
	waitFor(t, "blocked fetch", func() bool { return f.callCount() == 2 })
	_ = tb.SetSearch("bob")

	waitFor(t, "bob results", func() bool { return tb.TotalRows() == 1 })
	close(f.gate)
	time.Sleep(20 * time.Millisecond)

	if got := viewNames(tb.View()); strings.Join(got, ",") != "Bob" {
		t.Errorf("rows = %v, want [Bob]", got)
	}
}

func TestBind_StopCancelsAndUnsubscribes(t *testing.T) {
	tb := serverTable(t)
	f := &memoryFetcher{names: []string{"ann"}}

	stop := Bind(context.Background(), tb, f, Source{Table: "people"}, time.Second, nil)
	waitFor(t, "initial page", func() bool { return tb.TotalRows() == 1 })
	stop()

	_ = tb.SetSearch("zzz")
	time.Sleep(20 * time.Millisecond)
	if got := f.callCount(); got != 1 {
		t.Errorf("fetch calls after stop = %d, want 1", got)
	}
}

func TestCellFromValue(t *testing.T) {
	ts := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	id := [16]byte{0x12, 0x34}

	tests := []struct {
		name string
		in   any
		want grid.Cell
	}{
		{"nil", nil, grid.Null()},
		{"int", int64(42), grid.Num(42)},
		{"string", "ann", grid.Str("ann")},
		{"time", ts, grid.Time(ts)},
		{"bytes", []byte("raw"), grid.Str("raw")},
		{"uuid", id, grid.Str("12340000-0000-0000-0000-000000000000")},
		{"bool", true, grid.Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellFromValue(tt.in); !got.Equal(tt.want) {
				t.Errorf("CellFromValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
