// Package export writes the filtered and sorted rows of a table as CSV or as
// a plain-text table.
//
// Exports read every row that passes the current search and filters, not
// only the current page, with columns in display order and hidden columns
// left out.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// Source is the part of a table an export reads. *grid.Table implements it.
type Source interface {
	Columns() []grid.Column
	VisibleColumns() []int
	FilteredRows() []grid.Row
}

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
)

// ErrUnknownFormat is returned for formats other than csv and txt.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat parses a format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "text/csv"
}

// Filename returns a timestamped download name for the export.
func (f Format) Filename(base string, now time.Time) string {
	if base == "" {
		base = "table"
	}
	return fmt.Sprintf("%s_%s.%s", base, now.Format("20060102_150405"), f)
}

// Exporter writes exports under a concurrency limit.
type Exporter struct {
	limiter    *Limiter
	flushEvery int
	log        *slog.Logger
}

// NewExporter returns an exporter that flushes every flushEvery rows.
func NewExporter(limiter *Limiter, flushEvery int, log *slog.Logger) *Exporter {
	if flushEvery <= 0 {
		flushEvery = 1000
	}
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{limiter: limiter, flushEvery: flushEvery, log: log}
}

// Limiter returns the exporter's limiter.
func (e *Exporter) Limiter() *Limiter { return e.limiter }

// Export writes src to w in format f and returns the number of data rows
// written. It waits for a limiter slot first and stops between rows when
// ctx is cancelled.
func (e *Exporter) Export(ctx context.Context, w io.Writer, src Source, f Format) (int, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	defer e.limiter.Release()

	start := time.Now()
	var (
		n   int
		err error
	)
	switch f {
	case FormatCSV:
		n, err = WriteCSV(ctx, w, src, e.flushEvery)
	case FormatText:
		n, err = WriteText(ctx, w, src)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	e.log.Info("export finished",
		"format", f,
		"rows", n,
		"duration", time.Since(start),
		"error", err)
	return n, err
}

// WriteCSV writes a header of column titles followed by one record per
// filtered row. When w is an http.Flusher it is flushed every flushEvery rows.
func WriteCSV(ctx context.Context, w io.Writer, src Source, flushEvery int) (int, error) {
	columns := src.Columns()
	visible := src.VisibleColumns()

	cw := csv.NewWriter(w)
	if err := cw.Write(headers(columns, visible)); err != nil {
		return 0, err
	}

	record := make([]string, len(visible))
	count := 0
	for _, row := range src.FilteredRows() {
		if err := ctx.Err(); err != nil {
			cw.Flush()
			return count, err
		}
		for i, col := range visible {
			record[i] = CellText(cellAt(row, col), columns[col].Type)
		}
		if err := cw.Write(record); err != nil {
			return count, err
		}

		count++
		if flushEvery > 0 && count%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return count, err
			}
			// Flush HTTP response for chunked transfer
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}

	cw.Flush()
	return count, cw.Error()
}

// WriteText renders the filtered rows as an aligned plain-text table with a
// totals footer for number and money columns.
func WriteText(ctx context.Context, w io.Writer, src Source) (int, error) {
	columns := src.Columns()
	visible := src.VisibleColumns()
	rows := src.FilteredRows()

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers(columns, visible))
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	alignments := make([]int, len(visible))
	for i, col := range visible {
		alignments[i] = tablewriter.ALIGN_LEFT
		if isNumeric(columns[col].Type) {
			alignments[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetColumnAlignment(alignments)

	record := make([]string, len(visible))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		for j, col := range visible {
			record[j] = CellText(cellAt(row, col), columns[col].Type)
		}
		tw.Append(record)
	}

	if footer, ok := totals(columns, visible, rows); ok {
		tw.SetFooter(footer)
	}
	tw.Render()
	return len(rows), nil
}

// CellText formats a cell for export. Numbers keep full precision, money
// has two decimals, dates are ISO formatted and booleans are Yes/No.
// Values that do not parse as their column type are written as-is.
func CellText(c grid.Cell, dt grid.DataType) string {
	if c.IsNull() {
		return ""
	}

	switch dt {
	case grid.TypeNumber:
		if f, ok := c.Float(); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case grid.TypeMoney:
		if f, ok := c.Float(); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	case grid.TypeDate:
		if d, ok := c.Date(); ok {
			return d.Format(time.DateOnly)
		}
	case grid.TypeDateTime:
		if t, ok := c.Instant(); ok {
			return t.Format(time.DateTime)
		}
	case grid.TypeBoolean:
		if b, err := strconv.ParseBool(c.Text()); err == nil {
			if b {
				return "Yes"
			}
			return "No"
		}
	}
	return c.Text()
}

func headers(columns []grid.Column, visible []int) []string {
	out := make([]string, len(visible))
	for i, col := range visible {
		out[i] = columns[col].Title
	}
	return out
}

// totals builds a footer summing the numeric visible columns. ok is false
// when there are none.
func totals(columns []grid.Column, visible []int, rows []grid.Row) ([]string, bool) {
	footer := make([]string, len(visible))
	found := false
	for i, col := range visible {
		if !isNumeric(columns[col].Type) {
			continue
		}
		agg := grid.AggregateColumn(rows, col)
		footer[i] = CellText(grid.Num(agg.Sum), columns[col].Type)
		found = true
	}
	if found && footer[0] == "" {
		footer[0] = "Total"
	}
	return footer, found
}

func isNumeric(dt grid.DataType) bool {
	return dt == grid.TypeNumber || dt == grid.TypeMoney
}

func cellAt(r grid.Row, i int) grid.Cell {
	if i < len(r) {
		return r[i]
	}
	return grid.Null()
}
