// Package errors provides custom error types for the streamchat client.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultRequestMessage is used when a failed response carries no body.
const DefaultRequestMessage = "Failed to get response from API"

// Sentinel errors for common cases
var (
	ErrEmptyInput        = errors.New("please enter a message")
	ErrRequestFailed     = errors.New("request failed")
	ErrStreamInterrupted = errors.New("stream interrupted")
	ErrBusy              = errors.New("a request is already in flight")
	ErrExchangeCancelled = errors.New("exchange cancelled")
)

// ValidationError is returned when user input is rejected before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return ErrEmptyInput.Error()
	}
	return e.Message
}

// Is allows comparison with sentinel errors
func (e *ValidationError) Is(target error) bool {
	if target == ErrEmptyInput {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RequestError represents a failed chat request: either a non-2xx status or a
// transport failure before the response body could be streamed.
type RequestError struct {
	StatusCode int
	Endpoint   string
	Body       string
	Cause      error
}

// Message returns the user-facing text: the response body when present,
// otherwise the transport error, otherwise a generic fallback.
func (e *RequestError) Message() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return DefaultRequestMessage
}

func (e *RequestError) Error() string {
	return e.Message()
}

// Detail extracts a human readable message from JSON error bodies such as
// {"detail": "..."}. Plain-text bodies are returned unchanged.
func (e *RequestError) Detail() string {
	body := strings.TrimSpace(e.Body)
	if body == "" || !gjson.Valid(body) {
		return e.Message()
	}
	for _, path := range []string{"detail", "error.message", "error", "message"} {
		if r := gjson.Get(body, path); r.Exists() && r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	if r := gjson.Get(body, "detail.0.msg"); r.Exists() {
		return r.String()
	}
	return body
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *RequestError) Is(target error) bool {
	if target == ErrRequestFailed {
		return true
	}
	_, ok := target.(*RequestError)
	return ok
}

// NewRequestError creates a RequestError for a non-success HTTP status.
func NewRequestError(statusCode int, endpoint, body string) *RequestError {
	return &RequestError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Body:       body,
	}
}

// NewTransportError creates a RequestError for a failure before any response
// headers were received.
func NewTransportError(endpoint string, cause error) *RequestError {
	return &RequestError{
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// StreamError represents a transport failure after the response headers were
// received, while the body was still being read.
type StreamError struct {
	Endpoint      string
	BytesReceived int
	Cause         error
}

func (e *StreamError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s after %d bytes", ErrStreamInterrupted, e.BytesReceived)
	}
	return fmt.Sprintf("%s after %d bytes: %v", ErrStreamInterrupted, e.BytesReceived, e.Cause)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Is allows comparison with sentinel errors
func (e *StreamError) Is(target error) bool {
	if target == ErrStreamInterrupted {
		return true
	}
	_, ok := target.(*StreamError)
	return ok
}

// NewStreamError creates a new StreamError
func NewStreamError(endpoint string, bytesReceived int, cause error) *StreamError {
	return &StreamError{
		Endpoint:      endpoint,
		BytesReceived: bytesReceived,
		Cause:         cause,
	}
}
