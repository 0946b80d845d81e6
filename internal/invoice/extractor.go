package invoice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
	"github.com/sagarsiwach/invoice-parser/internal/schema"
)

// Generator performs one completion call. *ollama.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateResponse, error)
}

// Reply is the successful answer of the inference service.
type Reply struct {
	StatusCode int
	Body       string

	// Text is the model's answer; empty when the service sent none.
	Text string
}

// Extractor builds the extraction request and sends it.
type Extractor struct {
	generator Generator
	model     string
	log       zerolog.Logger
}

// NewExtractor returns an extractor that asks model through generator.
func NewExtractor(generator Generator, model string) *Extractor {
	return &Extractor{
		generator: generator,
		model:     model,
		log:       logger.WithComponent("extractor"),
	}
}

// BuildPrompt embeds the descriptor in the extraction instruction.
func BuildPrompt(d schema.Descriptor) (string, error) {
	described, err := schema.Describe(d)
	if err != nil {
		return "", err
	}
	return "Analyze this invoice image and extract data according to this schema:\n" +
		described +
		"\n\nReturn ONLY valid JSON without explanations.", nil
}

// Extract sends img with a prompt built from d in a single generate call.
// img must hold data, as returned by document.Normalizer.
// Errors from the service (*ollama.TransportError, *ollama.RequestError) are
// returned unchanged.
func (e *Extractor) Extract(ctx context.Context, img *document.NormalizedImage, d schema.Descriptor) (*Reply, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, ErrMissingImage
	}

	prompt, err := BuildPrompt(d)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	req := ollama.GenerateRequest{
		Model:  e.model,
		Prompt: prompt,
		Images: []string{img.Base64()},
		Stream: false,
	}

	e.log.Debug().
		Str("model", e.model).
		Int("image_bytes", len(img.Data)).
		Str("image_format", img.Format.String()).
		Str("image_mime", img.Format.MIMEType()).
		Int("prompt_chars", len(prompt)).
		Msg("Analyzing invoice with vision model")

	resp, err := e.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Reply{
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
		Text:       resp.Response,
	}, nil
}
