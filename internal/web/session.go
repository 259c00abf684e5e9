package web

// session.go holds the live tables served over HTTP.
//
// Each table lives in a Session keyed by a random UUID. Sessions expire
// after sitting idle for the configured TTL; the janitor sweeps them and
// closes their tables, which cancels pending debounced searches and
// in-flight server-page fetches.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// ErrTooManySessions is returned when the store is full.
var ErrTooManySessions = errors.New("too many open tables")

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("table session not found")

// Session is one live table.
type Session struct {
	ID      string
	Table   *grid.Table
	Created time.Time
	Log     *slog.Logger

	lastSeen atomic.Int64
	stop     func()
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) close() {
	if s.stop != nil {
		s.stop()
	}
	s.Table.Close()
}

// Sessions is a bounded, expiring set of sessions. It is safe for
// concurrent use.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions returns a store holding at most max sessions, each expiring
// after ttl without use.
func NewSessions(max int, ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		max:      max,
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Add registers t under id. stop, when non-nil, runs before the table is
// closed.
func (ss *Sessions) Add(id string, t *grid.Table, log *slog.Logger, stop func()) (*Session, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.max > 0 && len(ss.sessions) >= ss.max {
		return nil, ErrTooManySessions
	}
	if _, dup := ss.sessions[id]; dup {
		return nil, fmt.Errorf("%w: duplicate session id", ErrBadRequest)
	}

	now := ss.now()
	s := &Session{
		ID:      id,
		Table:   t,
		Created: now,
		Log:     log,
		stop:    stop,
	}
	s.touch(now)
	ss.sessions[s.ID] = s
	return s, nil
}

// Get returns the session and marks it used.
func (ss *Sessions) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	ss.mu.RLock()
	s, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(ss.now())
	return s, nil
}

// Delete closes and removes a session.
func (ss *Sessions) Delete(id string) error {
	ss.mu.Lock()
	s, ok := ss.sessions[id]
	delete(ss.sessions, id)
	ss.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

// Len returns the number of live sessions.
func (ss *Sessions) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Sweep closes every session idle for longer than the TTL and returns how
// many it removed.
func (ss *Sessions) Sweep() int {
	if ss.ttl <= 0 {
		return 0
	}
	cutoff := ss.now().Add(-ss.ttl)

	var expired []*Session
	ss.mu.Lock()
	for id, s := range ss.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(ss.sessions, id)
		}
	}
	ss.mu.Unlock()

	for _, s := range expired {
		s.Log.Info("table session expired", "idle", ss.now().Sub(s.LastSeen()).Round(time.Second))
		s.close()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled, then closes every
// remaining session.
func (ss *Sessions) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ss.CloseAll()
			return nil
		case <-ticker.C:
			if n := ss.Sweep(); n > 0 {
				slog.Info("swept idle tables", "expired", n, "live", ss.Len())
			}
		}
	}
}

// CloseAll closes and removes every session.
func (ss *Sessions) CloseAll() {
	ss.mu.Lock()
	all := ss.sessions
	ss.sessions = make(map[string]*Session)
	ss.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}
