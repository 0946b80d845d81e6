package document

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF, PNG nor JPEG.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoPages is returned when the rasterizer produced no page images.
	ErrNoPages = errors.New("PDF conversion produced no images")

	// ErrEmptyDocument is returned when an image file holds no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrArtifactMissing is returned when the rendered page image cannot be
	// found after rendering.
	ErrArtifactMissing = errors.New("rendered page image not found")
)

// EncodingError is returned when the document or the rendered page cannot be
// read into memory.
type EncodingError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("document: read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ConversionError is returned when a PDF cannot be turned into a page image.
type ConversionError struct {
	// Path is the PDF being converted.
	Path string

	// Details describes the step that failed.
	Details string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("document: convert %s: %s: %v", e.Path, e.Details, e.Err)
	}
	return fmt.Sprintf("document: convert %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConversionError) Unwrap() error {
	return e.Err
}
