package grid

// error_messages.go maps table errors to user-facing messages with codes for
// support reference.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid configuration: columns or options are malformed
//	CFG002 - No columns: a table needs at least one column
//	CFG003 - Row shape: a row does not have one value per column
//	CFG004 - Duplicate row: two rows share the same identifier
//
// # Table Errors (GRID001-GRID099)
//
//	GRID001 - Invalid column: the column does not exist
//	GRID002 - Not sortable: the column cannot be sorted
//	GRID003 - Not filterable: the column has no filter
//	GRID004 - Invalid operator: the operator does not apply to this column
//	GRID005 - Invalid sort: unknown direction or repeated column
//	GRID006 - Invalid page size
//	GRID007 - Invalid column order
//	GRID008 - Invalid column width
//	GRID009 - Row not found
//	GRID010 - Search disabled
//	GRID011 - Selection disabled
//	GRID012 - Gesture in progress
//	GRID013 - No gesture
//	GRID014 - Not in server mode
//	GRID015 - Table closed
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred

import "errors"

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	msg    UserMessage
}

// errorMappings is checked in order with errors.Is; the first match wins.
var errorMappings = []errorMapping{
	{ErrNoColumns, UserMessage{"The table has no columns", "Configure at least one column", "CFG002"}},
	{ErrRowShape, UserMessage{"A row does not match the table's columns", "Provide one value per column for every row", "CFG003"}},
	{ErrDuplicateRowID, UserMessage{"Two rows share the same identifier", "Make the identifier column unique", "CFG004"}},
	{ErrInvalidConfig, UserMessage{"The table configuration is invalid", "Check the column definitions and options", "CFG001"}},
	{ErrInvalidColumn, UserMessage{"That column does not exist", "Refresh the table and try again", "GRID001"}},
	{ErrNotSortable, UserMessage{"This column cannot be sorted", "Sort by a different column", "GRID002"}},
	{ErrNotFilterable, UserMessage{"This column cannot be filtered", "Filter a different column or use search", "GRID003"}},
	{ErrInvalidOperator, UserMessage{"That filter does not apply to this column", "Choose one of the column's filter options", "GRID004"}},
	{ErrInvalidSort, UserMessage{"The sort order is invalid", "Sort each column at most once, ascending or descending", "GRID005"}},
	{ErrInvalidRowsPerPage, UserMessage{"That page size is not available", "Choose one of the offered page sizes", "GRID006"}},
	{ErrInvalidOrder, UserMessage{"The column order is invalid", "Include every column exactly once", "GRID007"}},
	{ErrInvalidWidth, UserMessage{"The column width is invalid", "Use a positive width", "GRID008"}},
	{ErrRowNotFound, UserMessage{"The row no longer exists", "Refresh the table and try again", "GRID009"}},
	{ErrSearchDisabled, UserMessage{"Search is not available for this table", "Use column filters instead", "GRID010"}},
	{ErrSelectionDisabled, UserMessage{"Rows cannot be selected in this table", "", "GRID011"}},
	{ErrGestureActive, UserMessage{"Another column is being dragged", "Finish the current drag first", "GRID012"}},
	{ErrNoGesture, UserMessage{"No column drag is in progress", "", "GRID013"}},
	{ErrNotServerMode, UserMessage{"This table does not load data from a server", "", "GRID014"}},
	{ErrClosed, UserMessage{"This table has been closed", "Reload the page", "GRID015"}},
}

// defaultMessage is returned when no mapping matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-facing message.
// Returns a zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return defaultMessage
}
