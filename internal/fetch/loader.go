package fetch

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// loader runs at most one fetch per table at a time.
type loader struct {
	parent  context.Context
	table   *grid.Table
	fetcher Fetcher
	src     Source
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func (l *loader) load(q grid.Query) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(l.parent, l.timeout)
	} else {
		ctx, cancel = context.WithCancel(l.parent)
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()

		rows, total, err := l.fetcher.Fetch(ctx, l.src, l.table.Columns(), q)
		if err != nil {
			if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				l.log.Error("server page fetch failed", "table", l.src.Table, "page", q.Page, "error", err)
			}
			return
		}

		l.mu.Lock()
		current := seq == l.seq && !l.stopped
		l.mu.Unlock()
		if !current || !reflect.DeepEqual(l.table.Query(), q) {
			return
		}

		if err := l.table.LoadServerPage(rows, total); err != nil && !errors.Is(err, grid.ErrClosed) {
			l.log.Error("load server page failed", "table", l.src.Table, "error", err)
		}
	}()
}

// stop cancels the fetch in flight and waits for it to return.
func (l *loader) stop() {
	l.mu.Lock()
	l.stopped = true
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.wg.Wait()
}
