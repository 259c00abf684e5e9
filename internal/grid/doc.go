// Package grid provides the state and view-derivation core of a data table.
//
// This package owns the single authoritative table state and the pure
// functions that turn raw rows into the exact slice of rows, in the exact
// order, that a renderer must display. It has no UI dependencies: HTTP
// handlers, HTML renderers, exporters and server-side fetchers all drive it
// through the same public API.
//
// # Architecture
//
// The package is organized leaf-first:
//
//   - Column Model: [Column], [DataType], [FilterKind] and [Operator] describe
//     each column. A column's identity is its original index in the
//     configured slice, independent of visual reordering.
//   - Cells: [Cell] is a tagged value (null, string, number, bool, time) and
//     [Row] is one cell per original column.
//   - Engines: [ApplyFilters], [SortRows], [Paginate] and [VisibleRange] are
//     pure functions. None of them mutate their input.
//   - Selection: [Selection] tracks selected row identifiers and derives the
//     select-all [TriState] against the currently filtered rows.
//   - Table: [Table] holds the state, runs the derivation pipeline
//     (filter, sort, then paginate or virtualize) after every mutation and
//     publishes [Event] values on its [Bus].
//
// # Pipeline
//
// Every mutator recomputes the current view in strict order:
//
//  1. Filter: global search term, then per-column filters (logical AND)
//  2. Sort: stable multi-key comparison over the filtered rows
//  3. Paginate the sorted rows, or compute the virtual scroll window
//
// In server mode the first three stages are skipped: the loaded rows are the
// current page and the total row count is supplied by the caller. Changes to
// search, filters, sort or page publish [EventDataNeeded] instead.
//
// # Notifications
//
// Mutators enqueue events while the table lock is held and deliver them after
// it is released, so subscribers observe events in mutation order and may call
// back into the table from a handler.
//
// # Error Handling
//
// Malformed configuration is rejected at the mutator boundary with a wrapped
// sentinel error and leaves the state untouched. Cells that fail to parse are
// excluded from comparisons, never reported. Out-of-range pages and
// single-selection overflow are clamped silently. Use [MapError] to turn an
// error into a user-facing [UserMessage].
package grid
