package client

import (
	"errors"
	"fmt"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unacceptable status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrInvalidArgument is wrapped by construction-time errors for bad
	// base URLs, wrong methods, and empty required fields.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnacceptableResponse is the sentinel error wrapped by
	// [ResponseError] when the status code falls outside the 2xx range.
	ErrUnacceptableResponse = errors.New("unacceptable response")
	// ErrAuthFailure is joined with [ErrUnacceptableResponse] when the
	// server responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrDecode is wrapped when a 2xx response body cannot be decoded
	// as the negotiated content type.
	ErrDecode = errors.New("decoding response body")
)

// ResponseError is delivered to the failure callback when the HTTP
// response status code falls outside the 2xx range.
type ResponseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
