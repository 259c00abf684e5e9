// Package ingest turns uploaded CSV files into table rows.
//
// The reader is streaming: the file is decoded record by record, so memory
// grows with the rows kept, not with the upload. Input is normalised before
// parsing:
//
//   - A byte order mark (UTF-8 or UTF-16) is removed, and UTF-16 input is
//     decoded to UTF-8
//   - Invalid UTF-8 sequences become U+FFFD
//   - Cells are cleaned of spreadsheet artifacts (="..." formula wrapping,
//     surrounding quotes, padding)
//
// Header names are matched to column titles case-insensitively, either
// verbatim or in snake_case form ("Full Name" or "full_name").
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// ErrEmptyFile is returned when the upload has no header row.
var ErrEmptyFile = errors.New("csv file is empty")

// ErrMissingColumn is returned when a required column has no header.
var ErrMissingColumn = errors.New("csv file is missing a required column")

// ErrNoMatchingColumns is returned when no header names a table column.
var ErrNoMatchingColumns = errors.New("csv header matches no table column")

// ContextCheckInterval is how often (in records) Read checks for cancellation.
var ContextCheckInterval = 100

// MaxReportedErrors caps Result.Errors. Rows past the cap are still skipped
// and counted.
const MaxReportedErrors = 100

// Options tunes Read.
type Options struct {
	Comma    rune  // Field delimiter (default ',')
	Required []int // Columns that must appear in the header
	MaxRows  int   // Stop with an error after this many data rows (0 = no limit)
}

// RowError describes one rejected record.
type RowError struct {
	Line    int    `json:"line"`             // 1-based line of the record in the file
	Column  string `json:"column,omitempty"` // Column title, empty for record-level errors
	Value   string `json:"value,omitempty"`  // The offending cell
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result is the outcome of reading one file.
type Result struct {
	Rows    []grid.Row
	Skipped int        // Records rejected
	Errors  []RowError // First MaxReportedErrors rejections
	Bytes   int64      // Bytes consumed from the upload
	Unknown []string   // Header names that match no column
}

// ErrTooManyRows is returned when a file exceeds Options.MaxRows.
var ErrTooManyRows = errors.New("csv file has too many rows")

// Read parses r into rows for columns. Each row has one cell per column;
// columns absent from the header are null. Records whose typed cells fail
// to parse are skipped and reported in Result.Errors.
func Read(ctx context.Context, r io.Reader, columns []grid.Column, opts Options) (Result, error) {
	counter := &countingReader{r: r}
	cr := csv.NewReader(NewReader(counter))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	var res Result
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, ErrEmptyFile
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}

	positions, unknown := matchHeader(header, columns)
	res.Unknown = unknown
	if len(unknown) == len(header) {
		return res, ErrNoMatchingColumns
	}
	for _, col := range opts.Required {
		if col >= 0 && col < len(columns) && positions[col] < 0 {
			return res, fmt.Errorf("%w: %q", ErrMissingColumn, columns[col].Title)
		}
	}

	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.reject(RowError{Line: perr.StartLine, Message: perr.Err.Error()})
				continue
			}
			return res, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if opts.MaxRows > 0 && len(res.Rows) >= opts.MaxRows {
			return res, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}

		row, rerr := convertRecord(record, positions, columns)
		if rerr != nil {
			rerr.Line = line
			res.reject(*rerr)
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	res.Bytes = counter.n
	return res, nil
}

func (res *Result) reject(e RowError) {
	res.Skipped++
	if len(res.Errors) < MaxReportedErrors {
		res.Errors = append(res.Errors, e)
	}
}

// NewReader wraps r so that it yields UTF-8 without a byte order mark.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// matchHeader maps each column to its position in header, -1 when absent,
// and returns the header names that matched nothing.
func matchHeader(header []string, columns []grid.Column) ([]int, []string) {
	index := MakeHeaderIndex(header)

	positions := make([]int, len(columns))
	used := make(map[int]bool, len(columns))
	for i, col := range columns {
		positions[i] = -1
		for _, key := range []string{headerKey(col.Title), headerKey(snakeCase(col.Title))} {
			if pos, ok := index[key]; ok && !used[pos] {
				positions[i] = pos
				used[pos] = true
				break
			}
		}
	}

	var unknown []string
	for pos, h := range header {
		if !used[pos] {
			unknown = append(unknown, CleanCell(h))
		}
	}
	return positions, unknown
}

// MakeHeaderIndex maps cleaned, lowercased header names to their position.
// The first of two identical names wins.
func MakeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func headerKey(s string) string {
	return strings.ToLower(CleanCell(s))
}

// snakeCase converts "Full Name" to "full_name".
func snakeCase(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// CleanCell removes common CSV artifacts from a cell value:
//   - Trims whitespace
//   - Removes the Excel formula wrapper (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// countingReader counts bytes read from the raw upload.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
