// Package errors defines the sentinel errors shared across bibliograph
// services and an AppError wrapper that carries an HTTP status code to the
// edge handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDocumentNotFound is returned when a document id resolves to nothing.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentRejected is returned when a document fails the ingestion
	// gate (below the minimum token count or empty after normalization).
	ErrDocumentRejected = errors.New("document rejected")
	// ErrInvalidPattern is returned when a query pattern fails to compile.
	// The wrapped message carries the compiler's diagnostic.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrInvalidInput covers malformed requests (bad limit, missing fields).
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable is returned when the persistent store cannot be
	// reached. Work committed before the failure survives.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrInternal is the fallback for unexpected failures.
	ErrInternal = errors.New("internal error")
)

// AppError pairs a sentinel with a caller-facing message and the HTTP
// status an edge handler should answer with.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError around sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

// Newf is New with a formatted message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// statusBySentinel maps bare sentinels to HTTP statuses for errors that
// never passed through New.
var statusBySentinel = []struct {
	err  error
	code int
}{
	{ErrDocumentNotFound, http.StatusNotFound},
	{ErrInvalidPattern, http.StatusBadRequest},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrDocumentRejected, http.StatusUnprocessableEntity},
	{ErrStoreUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// HTTPStatusCode maps err to a response status, preferring the code an
// AppError carries.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}
