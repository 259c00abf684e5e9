package grid

import (
	"slices"
	"sync"
)

// EventName identifies a change notification.
type EventName string

const (
	EventPageChanged             EventName = "page-changed"
	EventRowsPerPageChanged      EventName = "rows-per-page-changed"
	EventSortChanged             EventName = "sort-changed"
	EventSelectionChanged        EventName = "selection-changed"
	EventSearchPerformed         EventName = "search-performed"
	EventFilterChanged           EventName = "filter-changed"
	EventColumnResized           EventName = "column-resized"
	EventColumnReordered         EventName = "column-reordered"
	EventColumnVisibilityChanged EventName = "column-visibility-changed"
	EventDataChanged             EventName = "data-changed"
	EventScrolled                EventName = "scrolled"
	EventDataNeeded              EventName = "data-needed"
	EventRenderComplete          EventName = "render-complete"
)

// Event is a named notification with a structured payload. The payload type
// is fixed per name, see the *Payload types below.
type Event struct {
	Name    EventName `json:"name"`
	Payload any       `json:"payload"`
}

// PagePayload accompanies page-changed and rows-per-page-changed.
type PagePayload struct {
	Page         int `json:"page"`
	PreviousPage int `json:"previousPage"`
	TotalPages   int `json:"totalPages"`
	RowsPerPage  int `json:"rowsPerPage"`
}

// SortPayload accompanies sort-changed. Column and Direction describe the
// primary key; Column is -1 when the criteria were cleared.
type SortPayload struct {
	Column    int             `json:"columnIndex"`
	Direction Direction       `json:"direction,omitempty"`
	Criteria  []SortCriterion `json:"criteria"`
}

// SelectionPayload accompanies selection-changed.
type SelectionPayload struct {
	Selected []string `json:"selected"`
	TriState TriState `json:"triState"`
}

// SearchPayload accompanies search-performed.
type SearchPayload struct {
	Term    string `json:"term"`
	Results int    `json:"results"`
}

// FilterPayload accompanies filter-changed. Filter is nil when the column's
// filter was cleared; Column is -1 when every filter was cleared.
type FilterPayload struct {
	Column  int          `json:"columnIndex"`
	Filter  *FilterState `json:"filter"`
	Results int          `json:"results"`
}

// ColumnPayload accompanies column-resized, column-reordered and
// column-visibility-changed.
type ColumnPayload struct {
	Column  int   `json:"columnIndex"`
	Width   int   `json:"width,omitempty"`
	Visible bool  `json:"visible"`
	Order   []int `json:"order,omitempty"`
}

// DataPayload accompanies data-changed.
type DataPayload struct {
	Action    string `json:"action"` // replace, insert, update, delete or load
	ID        string `json:"id,omitempty"`
	TotalRows int    `json:"totalRows"`
}

// ScrollPayload accompanies scrolled.
type ScrollPayload struct {
	Offset float64 `json:"offset"`
	Range  Range   `json:"range"`
}

// RenderPayload accompanies render-complete, published after every derive.
type RenderPayload struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	TotalRows  int `json:"totalRows"`
	Start      int `json:"start"`
	End        int `json:"end"`
}

// Handler receives events. Handlers may call back into the table.
type Handler func(Event)

// Bus delivers events to subscribers in publish order.
//
// Publishers enqueue while holding their own lock and call flush after
// releasing it. Only one goroutine drains at a time; a flush that finds a
// drain in progress returns immediately and its events are delivered by the
// draining goroutine. This keeps delivery ordered even when a handler
// publishes more events.
type Bus struct {
	mu       sync.Mutex
	subs     map[uint64]Handler
	nextID   uint64
	queue    []Event
	draining bool
	closed   bool
}

// Subscribe registers fn and returns a function that removes it.
// Subscribing to a closed bus is a no-op.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || fn == nil {
		return func() {}
	}
	if b.subs == nil {
		b.subs = make(map[uint64]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// enqueue adds an event to the delivery queue without delivering it.
func (b *Bus) enqueue(name EventName, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || len(b.subs) == 0 {
		return
	}
	b.queue = append(b.queue, Event{Name: name, Payload: payload})
}

// flush delivers queued events until the queue is empty.
func (b *Bus) flush() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true

	for len(b.queue) > 0 {
		e := b.queue[0]
		b.queue = b.queue[1:]
		handlers := b.snapshot()
		b.mu.Unlock()

		for _, h := range handlers {
			h(e)
		}

		b.mu.Lock()
	}
	b.queue = nil
	b.draining = false
	b.mu.Unlock()
}

// snapshot returns handlers in subscription order. Caller holds b.mu.
func (b *Bus) snapshot() []Handler {
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Handler, len(ids))
	for i, id := range ids {
		out[i] = b.subs[id]
	}
	return out
}

// close drops every subscriber and pending event.
func (b *Bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	b.queue = nil
}
