package grid

import "errors"

// Errors returned by Table mutators. They are wrapped with context, so
// compare with errors.Is.
var (
	// ErrInvalidConfig is returned when a table or column configuration is malformed.
	ErrInvalidConfig = errors.New("invalid table configuration")

	// ErrNoColumns is returned when a table is configured without columns.
	ErrNoColumns = errors.New("no columns configured")

	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrNotSortable is returned when sorting a column flagged unsortable.
	ErrNotSortable = errors.New("column is not sortable")

	// ErrNotFilterable is returned when filtering a column without a filter kind.
	ErrNotFilterable = errors.New("column is not filterable")

	// ErrInvalidOperator is returned when an operator is not allowed for a column.
	ErrInvalidOperator = errors.New("invalid filter operator")

	// ErrInvalidSort is returned for unknown directions or repeated sort columns.
	ErrInvalidSort = errors.New("invalid sort criteria")

	// ErrInvalidRowsPerPage is returned when rows per page is not a positive allowed size.
	ErrInvalidRowsPerPage = errors.New("invalid rows per page")

	// ErrInvalidOrder is returned when a column order is not a permutation of all columns.
	ErrInvalidOrder = errors.New("invalid column order")

	// ErrInvalidWidth is returned when a column width is not positive.
	ErrInvalidWidth = errors.New("invalid column width")

	// ErrRowShape is returned when a row does not have one cell per column.
	ErrRowShape = errors.New("row does not match columns")

	// ErrDuplicateRowID is returned when two rows share an identifier.
	ErrDuplicateRowID = errors.New("duplicate row id")

	// ErrRowNotFound is returned when no row has the given identifier.
	ErrRowNotFound = errors.New("row not found")

	// ErrSearchDisabled is returned when searching a table configured without search.
	ErrSearchDisabled = errors.New("search is disabled")

	// ErrSelectionDisabled is returned when selecting rows on a table without selection.
	ErrSelectionDisabled = errors.New("selection is disabled")

	// ErrGestureActive is returned when a gesture starts while another is live.
	ErrGestureActive = errors.New("another gesture is in progress")

	// ErrNoGesture is returned when moving or ending a gesture that was never started.
	ErrNoGesture = errors.New("no gesture in progress")

	// ErrNotServerMode is returned when loading a server page into a client-side table.
	ErrNotServerMode = errors.New("table is not in server mode")

	// ErrClosed is returned by every mutator after Close.
	ErrClosed = errors.New("table is closed")
)
