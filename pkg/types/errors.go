// Package types defines error types shared by the fetch, retry and worker packages
package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Predefined errors
var (
	// ErrSkipped indicates an item was abandoned; the batch continues
	ErrSkipped = errors.New("item skipped")

	// ErrAborted indicates a fatal failure that terminates the whole batch
	ErrAborted = errors.New("run aborted")

	// ErrUnexpectedStatus indicates a response status the caller did not expect
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUnclassified indicates a failure the classifier has no rule for
	ErrUnclassified = errors.New("unclassified failure")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrWorkerPoolFull indicates the worker pool is full
	ErrWorkerPoolFull = errors.New("worker pool is full")

	// ErrInvalidInput indicates invalid input
	ErrInvalidInput = errors.New("invalid input")
)

// StatusError reports a non-successful HTTP response
type StatusError struct {
	// Code is the HTTP status code
	Code int

	// Locator is the URL that produced the response
	Locator string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unknown status"
	}
	if e.Locator == "" {
		return fmt.Sprintf("http %d %s", e.Code, text)
	}
	return fmt.Sprintf("http %d %s: %s", e.Code, text, e.Locator)
}

// NewStatusError creates a new status error
func NewStatusError(code int, locator string) *StatusError {
	return &StatusError{Code: code, Locator: locator}
}

// StatusCode extracts the HTTP status code carried by err, if any
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}

// FetchError attaches the locator and attempt number to a failed attempt
type FetchError struct {
	// Locator is the URL the attempt used
	Locator string

	// Attempt is the 1-based attempt number within one run
	Attempt int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (attempt %d): %v", e.Locator, e.Attempt, e.Cause)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError creates a new fetch error
func NewFetchError(locator string, attempt int, cause error) *FetchError {
	return &FetchError{
		Locator: locator,
		Attempt: attempt,
		Cause:   cause,
	}
}

// IsSkipped reports whether err marks a skipped item
func IsSkipped(err error) bool {
	return errors.Is(err, ErrSkipped)
}

// IsAborted reports whether err marks a fatal abort
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
