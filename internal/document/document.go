// Package document turns an invoice file into a single raster image that can
// be sent to a vision model.
//
// Images (PNG, JPEG) pass through unchanged unless a maximum dimension is
// configured. PDFs are rasterized with poppler's pdftoppm; only the first page
// is used. All rendering happens in a temporary directory that is removed
// before Normalize returns, whatever the outcome.
package document

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the inferred type of an input document.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatPNG
	FormatJPEG
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// MIMEType returns the media type for f.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatUnknown
	}
}

// SupportedExtensions lists the file extensions NewDocument accepts.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg"}
}

// Document is an input file and its inferred format.
type Document struct {
	Path   string
	Format Format
}

// NewDocument validates the extension of path and returns the document.
func NewDocument(path string) (Document, error) {
	if strings.TrimSpace(path) == "" {
		return Document{}, fmt.Errorf("document: empty path")
	}
	format := FormatFromPath(path)
	if format == FormatUnknown {
		return Document{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}
	return Document{Path: path, Format: format}, nil
}

// IsImage reports whether the document can be sent without rasterizing.
func (d Document) IsImage() bool {
	return d.Format == FormatPNG || d.Format == FormatJPEG
}

// NormalizedImage is the single page image sent to the model.
type NormalizedImage struct {
	// Data holds the encoded image bytes.
	Data []byte

	// Format is the encoding of Data (PNG or JPEG).
	Format Format

	// SourcePages is the page count of the source PDF when known, 1 for images
	// and 0 when a PDF could not be probed.
	SourcePages int
}

// Base64 returns Data encoded with standard base64, as the generate API
// expects for its images array.
func (img *NormalizedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}
