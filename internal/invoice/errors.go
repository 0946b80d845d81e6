package invoice

import (
	"errors"
	"fmt"
)

// Common invoice extraction errors
var (
	// ErrNoJSON is returned when the model reply contains no brace-delimited
	// JSON object.
	ErrNoJSON = errors.New("no JSON object found in model response")

	// ErrNotObject is returned when the reply is valid JSON but not an object.
	ErrNotObject = errors.New("model response JSON is not an object")

	// ErrMissingImage is returned when Extract is called without image data.
	// Normalize never produces an empty image, so it only surfaces when
	// Extract is driven directly.
	ErrMissingImage = errors.New("no image to send")
)

// RecoveryError is returned when no JSON could be recovered from the model
// reply. Raw keeps the full reply for diagnostics.
type RecoveryError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *RecoveryError) Error() string {
	return fmt.Sprintf("invoice: recover JSON from %d-char response: %v", len(e.Raw), e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// ProcessingError wraps a pipeline stage failure with the stage name. The
// typed stage error (EncodingError, ConversionError, TransportError,
// RequestError, RecoveryError) stays reachable through errors.As.
type ProcessingError struct {
	// Op is the stage that failed (e.g., "Normalize", "Extract", "Recover").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// RequestID identifies the pipeline invocation in the logs.
	RequestID string
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError with the specified operation and underlying error.
func NewProcessingError(op string, err error, details string) *ProcessingError {
	return &ProcessingError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapProcessingError wraps an error as a ProcessingError if it isn't already one.
func WrapProcessingError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err // Already wrapped
	}

	return NewProcessingError(op, err, details)
}
