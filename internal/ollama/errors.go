package ollama

import (
	"fmt"
)

// TransportError is returned when the service could not be reached or did
// not answer in time: connection refused, DNS failure, timeout or a canceled
// context.
type TransportError struct {
	// Op is the client call that failed (e.g., "Generate", "Version").
	Op string

	// URL is the endpoint that was called.
	URL string

	// Err is the underlying network error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("ollama: %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError is returned when the service answered with a non-2xx status,
// or with a 2xx body that could not be decoded.
type RequestError struct {
	Op         string
	StatusCode int
	Body       string

	// Err is set when the body could not be decoded.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ollama: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ollama: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RequestError) Unwrap() error {
	return e.Err
}
