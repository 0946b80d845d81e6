package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
	"github.com/sagarsiwach/invoice-parser/internal/schema"
	"github.com/sagarsiwach/invoice-parser/pkg/models"
)

// DocumentNormalizer turns a document into the image sent to the model.
// *document.Normalizer implements it.
type DocumentNormalizer interface {
	Normalize(ctx context.Context, doc document.Document) (*document.NormalizedImage, error)
}

// VisionProcessor implements Processor with a document normalizer, an
// Ollama vision model and the invoice schema registry.
type VisionProcessor struct {
	normalizer DocumentNormalizer
	extractor  *Extractor
	registry   *schema.Registry
	model      string
	log        zerolog.Logger
}

// NewVisionProcessor wires the default pipeline for cfg: pdftoppm
// rasterization and an HTTP Ollama client.
func NewVisionProcessor(cfg Config) (*VisionProcessor, error) {
	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, err
	}
	client := ollama.NewClient(cfg.Ollama)
	normalizer := document.NewNormalizer(cfg.Normalizer)
	return NewVisionProcessorWith(normalizer, client, registry, client.Model()), nil
}

// NewVisionProcessorWith creates a processor from explicit collaborators
// (for testing or custom backends).
func NewVisionProcessorWith(normalizer DocumentNormalizer, generator Generator, registry *schema.Registry, model string) *VisionProcessor {
	return &VisionProcessor{
		normalizer: normalizer,
		extractor:  NewExtractor(generator, model),
		registry:   registry,
		model:      model,
		log:        logger.WithComponent("invoice"),
	}
}

// ProcessInvoice runs normalization, one inference call and JSON recovery for
// the document at path.
func (p *VisionProcessor) ProcessInvoice(ctx context.Context, path string) (*Result, error) {
	requestID := uuid.NewString()
	log := logger.WithRequestID(p.log, requestID)
	startTime := time.Now()

	fail := func(op string, err error, details string) error {
		log.Error().Err(err).Str("op", op).Str("file", path).Msg("Invoice extraction failed")
		wrapped := WrapProcessingError(op, err, details)
		if pe, ok := wrapped.(*ProcessingError); ok {
			pe.RequestID = requestID
		}
		return wrapped
	}

	doc, err := document.NewDocument(path)
	if err != nil {
		return nil, fail("NewDocument", err, "")
	}

	log.Info().
		Str("file", doc.Path).
		Str("format", doc.Format.String()).
		Str("model", p.model).
		Msg("Processing document")

	img, err := p.normalizer.Normalize(ctx, doc)
	if err != nil {
		return nil, fail("Normalize", err, doc.Path)
	}
	imageBytes, sourcePages := len(img.Data), img.SourcePages

	reply, err := p.extractor.Extract(ctx, img, p.registry.Descriptor())
	if err != nil {
		return nil, fail("Extract", err, "")
	}

	value, err := Recover(reply.Text)
	if err != nil {
		log.Debug().Str("response", reply.Text).Msg("Response content")
		return nil, fail("Recover", err, "")
	}

	record, ok := value.(map[string]any)
	if !ok {
		return nil, fail("Recover", &RecoveryError{Raw: reply.Text, Err: ErrNotObject}, "")
	}

	invoice := models.Invoice(record)
	missing := p.registry.MissingRequired(record)
	if len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("Recovered invoice lacks required fields")
	}

	processedAt := time.Now()
	result := &Result{
		Invoice:        invoice,
		RawResponse:    reply.Text,
		Missing:        missing,
		Model:          p.model,
		SourceFormat:   doc.Format,
		SourcePages:    sourcePages,
		ImageBytes:     imageBytes,
		RequestID:      requestID,
		ProcessingTime: processedAt.Sub(startTime),
		ProcessedAt:    processedAt,
	}

	log.Info().
		Str("invoice_number", invoice.InvoiceNumber()).
		Int("fields", len(invoice)).
		Dur("duration", result.ProcessingTime).
		Msg("Invoice extraction completed")

	return result, nil
}
