package client

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx reply from the directory
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// GetHTTPError extracts HTTPError from error if possible
func GetHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	ok := errors.As(err, &httpErr)
	return httpErr, ok
}

// RequestError is a transport-level failure: the directory was unreachable,
// the connection broke, or the call ran past its deadline.
type RequestError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err is a transport-level failure
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// failureMessage renders an error the way it is reported on a failed row
func failureMessage(err error) string {
	if httpErr, ok := GetHTTPError(err); ok {
		return httpErr.Error()
	}
	if IsRequestError(err) {
		return fmt.Sprintf("Request error: %v", err)
	}
	return fmt.Sprintf("Unexpected error: %v", err)
}
