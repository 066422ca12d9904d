package errors

import "errors"

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRequestError reports whether err is (or wraps) a RequestError.
func IsRequestError(err error) bool {
	var r *RequestError
	return errors.As(err, &r)
}

// IsStreamError reports whether err is (or wraps) a StreamError.
func IsStreamError(err error) bool {
	var s *StreamError
	return errors.As(err, &s)
}

// IsCancelled reports whether err stems from a cleared or abandoned exchange.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrExchangeCancelled)
}

// GetHTTPStatus returns the HTTP status code carried by err, or 0.
func GetHTTPStatus(err error) int {
	var r *RequestError
	if errors.As(err, &r) {
		return r.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or "".
func GetEndpoint(err error) string {
	var r *RequestError
	if errors.As(err, &r) {
		return r.Endpoint
	}
	var s *StreamError
	if errors.As(err, &s) {
		return s.Endpoint
	}
	return ""
}

// GetResponseBody returns the raw response body carried by err, or "".
func GetResponseBody(err error) string {
	var r *RequestError
	if errors.As(err, &r) {
		return r.Body
	}
	return ""
}

// UserMessage returns the text shown in the error banner for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var r *RequestError
	if errors.As(err, &r) {
		return r.Detail()
	}
	return err.Error()
}
