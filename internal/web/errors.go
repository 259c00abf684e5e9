package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Given a status code that matches the failure
//
// Table errors are mapped through grid.MapError; errors of the web layer
// itself (sessions, exports, request bodies) are mapped here first.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/gridstate/internal/export"
	"github.com/JonMunkholm/gridstate/internal/fetch"
	"github.com/JonMunkholm/gridstate/internal/grid"
	"github.com/JonMunkholm/gridstate/internal/ingest"
	"github.com/JonMunkholm/gridstate/internal/logging"
)

// ErrBadRequest wraps malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

// ErrNoDatabase is returned when a table asks for a fetch source but the
// server has no database.
var ErrNoDatabase = errors.New("no database configured")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type webMapping struct {
	target error
	status int
	msg    grid.UserMessage
}

// webMappings is checked before grid.MapError; the first match wins.
var webMappings = []webMapping{
	{ErrSessionNotFound, http.StatusNotFound, grid.UserMessage{Message: "The table was not found or has expired", Action: "Create the table again", Code: "WEB001"}},
	{ErrTooManySessions, http.StatusServiceUnavailable, grid.UserMessage{Message: "The server is holding too many tables", Action: "Close unused tables or try again later", Code: "WEB002"}},
	{export.ErrTooManyExports, http.StatusServiceUnavailable, grid.UserMessage{Message: "Too many exports are running", Action: "Try again in a few seconds", Code: "WEB003"}},
	{export.ErrUnknownFormat, http.StatusBadRequest, grid.UserMessage{Message: "Unknown export format", Action: "Use csv or txt", Code: "WEB004"}},
	{ErrNoDatabase, http.StatusBadRequest, grid.UserMessage{Message: "Server-side loading is not available", Action: "Send the rows with the table instead", Code: "WEB005"}},
	{fetch.ErrInvalidSource, http.StatusBadRequest, grid.UserMessage{Message: "The data source is invalid", Action: "Name the table and columns to load from", Code: "WEB006"}},
	{ingest.ErrEmptyFile, http.StatusBadRequest, grid.UserMessage{Message: "The uploaded file is empty", Action: "Upload a CSV file with a header row", Code: "WEB008"}},
	{ingest.ErrNoMatchingColumns, http.StatusBadRequest, grid.UserMessage{Message: "The file's header matches none of the table's columns", Action: "Name the CSV columns after the table's column titles", Code: "WEB009"}},
	{ingest.ErrMissingColumn, http.StatusBadRequest, grid.UserMessage{Message: "The file is missing the identifier column", Action: "Add the identifier column to the CSV header", Code: "WEB010"}},
	{ingest.ErrTooManyRows, http.StatusRequestEntityTooLarge, grid.UserMessage{Message: "The file has too many rows", Action: "Split the file and upload the parts separately", Code: "WEB011"}},
	{ErrBadRequest, http.StatusBadRequest, grid.UserMessage{Message: "The request could not be read", Action: "Check the request body and parameters", Code: "WEB007"}},
}

// statusFor returns the HTTP status for a table error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grid.ErrClosed):
		return http.StatusGone
	case errors.Is(err, grid.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, grid.ErrDuplicateRowID), errors.Is(err, grid.ErrGestureActive):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	if grid.MapError(err).Code != "ERR000" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// mapError returns the status and user message for err.
func mapError(err error) (int, grid.UserMessage) {
	for _, m := range webMappings {
		if errors.Is(err, m.target) {
			return m.status, m.msg
		}
	}
	return statusFor(err), grid.MapError(err)
}

// respondError logs the technical error with the request id and writes a
// JSON ErrorResponse.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if status >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
