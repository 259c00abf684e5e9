package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/gridstate/internal/export"
	"github.com/JonMunkholm/gridstate/internal/grid"
	"github.com/JonMunkholm/gridstate/internal/logging"
)

// eventBuffer is how many table events may queue per SSE client before new
// ones are dropped.
const eventBuffer = 64

// heartbeatInterval keeps idle SSE connections open through proxies.
const heartbeatInterval = 15 * time.Second

// handleEvents streams the table's events as Server-Sent Events. Each
// event's name is the SSE event type and its payload the JSON data.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	log := logging.WithFields(r.Context(), "session_id", sess.ID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	events := make(chan grid.Event, eventBuffer)
	unsubscribe := sess.Table.Subscribe(func(ev grid.Event) {
		// Non-blocking send; a slow client loses events rather than
		// stalling the table.
		select {
		case events <- ev:
		default:
			log.Warn("sse client lagging, event dropped", "event", ev.Name)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var id int
	for {
		select {
		case ev := <-events:
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Error("encode event", "event", ev.Name, "error", err)
				continue
			}
			id++
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Name, data)
			flusher.Flush()

		case <-heartbeat.C:
			if sess.Table.Closed() {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleExport downloads the filtered and sorted rows, all pages, as CSV or
// text. ?format=csv|txt, default csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "table"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(sanitizeFilename(name), time.Now())))

	n, err := s.exporter.Export(r.Context(), w, sess.Table, format)
	if errors.Is(err, export.ErrTooManyExports) {
		// Nothing was written yet.
		w.Header().Del("Content-Disposition")
		respondError(w, r, err)
		return
	}
	if err != nil {
		// Headers are already sent; log only.
		logging.FromContext(r.Context()).Warn("export interrupted",
			"session_id", sess.ID,
			"rows", n,
			"error", err)
	}
}

// sanitizeFilename keeps letters, digits, dash and underscore.
func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "table"
	}
	return string(out)
}
