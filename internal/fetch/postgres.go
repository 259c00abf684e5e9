// Package fetch loads pages of server-side tables from Postgres.
//
// A server-side grid.Table publishes data-needed whenever its search,
// filters, sort or page change. Bind listens for those events, runs the
// matching query through a Fetcher and installs the result with
// LoadServerPage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// ErrInvalidSource is returned when a Source cannot be queried.
var ErrInvalidSource = errors.New("invalid fetch source")

// Fetcher returns one page of rows matching q and the size of the whole
// result.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, columns []grid.Column, q grid.Query) ([]grid.Row, int, error)
}

// Postgres fetches pages from a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres returns a Fetcher backed by pool.
func NewPostgres(pool *pgxpool.Pool, log *slog.Logger) *Postgres {
	if log == nil {
		log = slog.Default()
	}
	return &Postgres{pool: pool, log: log}
}

// Fetch implements Fetcher.
func (p *Postgres) Fetch(ctx context.Context, src Source, columns []grid.Column, q grid.Query) ([]grid.Row, int, error) {
	stmt, err := Build(src, columns, q)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	var total int64
	if err := p.pool.QueryRow(ctx, stmt.Count, stmt.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rows: %w", err)
	}

	rows, err := p.pool.Query(ctx, stmt.Select, stmt.SelectArgs()...)
	if err != nil {
		return nil, 0, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := make([]grid.Row, 0, stmt.Limit)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, 0, fmt.Errorf("read row values: %w", err)
		}
		row := make(grid.Row, len(columns))
		for i := range row {
			if i < len(values) {
				row[i] = CellFromValue(values[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	p.log.Debug("fetched page",
		"table", src.Table,
		"rows", len(out),
		"total", total,
		"offset", stmt.Offset,
		"duration", time.Since(start))
	return out, int(total), nil
}

// CellFromValue converts a value decoded by pgx into a cell.
func CellFromValue(v any) grid.Cell {
	switch val := v.(type) {
	case nil:
		return grid.Null()
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return grid.Null()
		}
		return grid.Num(f.Float64)
	case pgtype.Text:
		if !val.Valid {
			return grid.Null()
		}
		return grid.Str(val.String)
	case pgtype.Date:
		if !val.Valid || val.InfinityModifier != pgtype.Finite {
			return grid.Null()
		}
		return grid.Time(val.Time)
	case pgtype.Timestamptz:
		if !val.Valid || val.InfinityModifier != pgtype.Finite {
			return grid.Null()
		}
		return grid.Time(val.Time)
	case [16]byte:
		return grid.Str(uuid.UUID(val).String())
	case []byte:
		return grid.Str(string(val))
	default:
		return grid.CellOf(v)
	}
}

// Bind keeps a server-side table loaded from f. It fetches the table's
// current query immediately and again on every data-needed event. A newer
// request cancels the one in flight, and results for a query the table has
// since moved past are dropped. Each fetch runs under timeout.
//
// The returned stop function unsubscribes and cancels any pending fetch.
func Bind(ctx context.Context, t *grid.Table, f Fetcher, src Source, timeout time.Duration, log *slog.Logger) (stop func()) {
	if log == nil {
		log = slog.Default()
	}
	l := &loader{parent: ctx, table: t, fetcher: f, src: src, timeout: timeout, log: log}

	unsubscribe := t.Subscribe(func(ev grid.Event) {
		if ev.Name != grid.EventDataNeeded {
			return
		}
		if q, ok := ev.Payload.(grid.Query); ok {
			l.load(q)
		}
	})
	l.load(t.Query())

	return func() {
		unsubscribe()
		l.stop()
	}
}
