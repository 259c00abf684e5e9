// Package web serves data tables over HTTP.
//
// A client creates a table from a JSON configuration and receives a session
// id. Every query and mutation of the table is then available as a JSON
// endpoint under /api/tables/{id}; table events stream as Server-Sent
// Events; the current view renders as an HTML fragment; and the filtered
// rows export as CSV or plain text.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/gridstate/internal/config"
	"github.com/JonMunkholm/gridstate/internal/export"
	"github.com/JonMunkholm/gridstate/internal/fetch"
	"github.com/JonMunkholm/gridstate/internal/web/middleware"
)

// Server is the HTTP server for table sessions.
type Server struct {
	cfg      *config.Config
	sessions *Sessions
	exporter *export.Exporter
	fetcher  fetch.Fetcher // nil without a database

	router *chi.Mux
	server *http.Server

	// ctx outlives requests; server-side fetches run under it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a Server. fetcher may be nil, in which case tables
// with a fetch source are rejected.
func NewServer(cfg *config.Config, sessions *Sessions, exporter *export.Exporter, fetcher fetch.Fetcher) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		exporter: exporter,
		fetcher:  fetcher,
		router:   chi.NewRouter(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.ctx, s.cfg.Rate.RequestsPerMinute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Get("/status", s.handleStatus)

		r.Route("/tables", func(r chi.Router) {
			r.With(s.jsonRoute).Post("/", s.handleCreateTable)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Use(s.loadSession)

				// Streaming routes run without compression or timeout.
				r.Get("/events", s.handleEvents)
				r.Group(func(r chi.Router) {
					if s.cfg.Rate.Enabled {
						r.Use(newRateLimiter(s.ctx, s.cfg.Rate.ExportLimit).middleware)
					}
					r.Get("/export", s.handleExport)
				})

				r.Group(func(r chi.Router) {
					r.Use(s.jsonRoute)
					s.tableRoutes(r)
				})
			})
		})
	})
}

// tableRoutes registers the query and mutation endpoints of one table.
func (s *Server) tableRoutes(r chi.Router) {
	r.Get("/", s.handleState)
	r.Delete("/", s.handleDeleteTable)
	r.Get("/view", s.handleView)
	r.Get("/html", s.handleHTML)
	r.Get("/aggregations", s.handleAggregations)

	r.Post("/search", s.handleSearch)
	r.Put("/filters/{col}", s.handleSetFilter)
	r.Delete("/filters/{col}", s.handleClearFilter)
	r.Delete("/filters", s.handleClearFilters)
	r.Put("/sort", s.handleSetSort)
	r.Post("/sort/click", s.handleClickSort)
	r.Put("/page", s.handleSetPage)
	r.Put("/rows-per-page", s.handleSetRowsPerPage)
	r.Put("/scroll", s.handleSetScroll)
	r.Put("/viewport", s.handleSetViewport)

	r.Put("/columns/order", s.handleSetColumnOrder)
	r.Post("/columns/{col}/move", s.handleMoveColumn)
	r.Put("/columns/{col}/width", s.handleSetColumnWidth)
	r.Put("/columns/{col}/visible", s.handleSetColumnVisible)

	r.Post("/selection/toggle", s.handleToggleRow)
	r.Post("/selection/all", s.handleSelectAll)
	r.Delete("/selection", s.handleDeselectAll)

	r.Put("/rows", s.handleSetData)
	r.Post("/rows", s.handleInsertRow)
	r.Put("/rows/{rowID}", s.handleUpdateRow)
	r.Delete("/rows/{rowID}", s.handleDeleteRow)
	r.Put("/server-page", s.handleLoadServerPage)
	r.Post("/import", s.handleImport)
	r.Post("/import/preview", s.handleImportPreview)

	r.Post("/gesture/resize", s.handleBeginResize)
	r.Post("/gesture/reorder", s.handleBeginReorder)
	r.Post("/gesture/drag", s.handleDrag)
	r.Post("/gesture/end", s.handleEndGesture)
	r.Delete("/gesture", s.handleCancelGesture)
}

// jsonRoute applies the request timeout, compression and body limit used by
// every non-streaming route.
func (s *Server) jsonRoute(next http.Handler) http.Handler {
	h := chimw.Compress(5)(next)
	if s.cfg.Server.RequestTimeout > 0 {
		h = chimw.Timeout(s.cfg.Server.RequestTimeout)(h)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.MaxBodySize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
		}
		h.ServeHTTP(w, r)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and cancels background fetches.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.cancel()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
