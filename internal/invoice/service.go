// Package invoice extracts structured invoice data from a PDF or image using
// a vision model served by Ollama.
//
// A call to ProcessInvoice runs one synchronous pass:
//   - the document is normalized to a single page image (PDFs: first page only)
//   - the image and the schema description are sent in one /api/generate call
//   - a JSON object is recovered from the free-form reply
//
// Nothing is retried. Each stage failure is returned as a *ProcessingError
// wrapping the stage's typed error:
//   - *document.EncodingError: the file or rendered page cannot be read
//   - *document.ConversionError: the PDF produced no page image
//   - *ollama.TransportError: the server could not be reached or timed out
//   - *ollama.RequestError: the server answered with a non-2xx status
//   - *RecoveryError: no JSON could be found in the reply
//
// A record that lacks required fields is not an error; the missing keys are
// listed in Result.Missing and the caller decides what to do.
package invoice

import (
	"context"
	"time"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
	"github.com/sagarsiwach/invoice-parser/pkg/models"
)

// Processor defines the interface for invoice extraction pipelines.
type Processor interface {
	// ProcessInvoice extracts structured data from the invoice at path.
	ProcessInvoice(ctx context.Context, path string) (*Result, error)
}

// Config holds everything a pipeline needs. It is passed in at construction;
// pipelines built from different configs do not share state.
type Config struct {
	Ollama     ollama.Config
	Normalizer document.NormalizerConfig
}

// Result contains the recovered invoice and information about the run.
type Result struct {
	// Invoice is the recovered record, exactly as the model produced it.
	Invoice models.Invoice

	// RawResponse is the model's reply text.
	RawResponse string

	// Missing lists required top-level fields absent from Invoice.
	Missing []string

	// Model is the model that produced the reply.
	Model string

	// SourceFormat is the format of the input document.
	SourceFormat document.Format

	// SourcePages is the page count of the input (0 if a PDF could not be probed).
	SourcePages int

	// ImageBytes is the size of the image that was sent.
	ImageBytes int

	// RequestID identifies this invocation in the logs.
	RequestID string

	// ProcessingTime is how long the whole pipeline took.
	ProcessingTime time.Duration

	// ProcessedAt is when the processing completed.
	ProcessedAt time.Time
}

// Complete reports whether every required field was present.
func (r *Result) Complete() bool {
	return len(r.Missing) == 0
}
