package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/sagarsiwach/invoice-parser/internal/logger"
)

// renderedPageName is the file the first page is saved as inside the
// temporary render directory.
const renderedPageName = "page_0.png"

// NormalizerConfig configures a Normalizer.
type NormalizerConfig struct {
	// PdftoppmPath is the pdftoppm binary used by the default rasterizer.
	PdftoppmPath string

	// DPI is the rendering resolution for PDF pages.
	DPI int

	// TempDir is the parent of the per-call render directory. Empty means the
	// system temporary directory.
	TempDir string

	// MaxDimension downscales images whose width or height exceeds it.
	// Zero disables resizing.
	MaxDimension int
}

// Normalizer turns documents into a single encodable image.
type Normalizer struct {
	rasterizer   Rasterizer
	tempDir      string
	maxDimension int
	log          zerolog.Logger
}

// NewNormalizer creates a normalizer that rasterizes PDFs with pdftoppm.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	log := logger.WithComponent("normalizer")
	return newNormalizer(cfg, NewPdftoppmRasterizer(cfg.PdftoppmPath, cfg.DPI, log), log)
}

// NewNormalizerWithRasterizer creates a normalizer with an explicit
// rasterization backend (for testing or alternative renderers).
func NewNormalizerWithRasterizer(cfg NormalizerConfig, rasterizer Rasterizer) *Normalizer {
	return newNormalizer(cfg, rasterizer, logger.WithComponent("normalizer"))
}

func newNormalizer(cfg NormalizerConfig, rasterizer Rasterizer, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		rasterizer:   rasterizer,
		tempDir:      cfg.TempDir,
		maxDimension: cfg.MaxDimension,
		log:          log,
	}
}

// Normalize returns the image to send for doc. PDFs are rendered once; there
// is no retry.
func (n *Normalizer) Normalize(ctx context.Context, doc Document) (*NormalizedImage, error) {
	switch {
	case doc.Format == FormatPDF:
		return n.normalizePDF(ctx, doc)
	case doc.IsImage():
		return n.normalizeImage(doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.Path)
	}
}

func (n *Normalizer) normalizeImage(doc Document) (*NormalizedImage, error) {
	n.log.Info().Str("file", doc.Path).Msg("Processing image file")

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, &EncodingError{Path: doc.Path, Err: err}
	}
	if len(data) == 0 {
		return nil, &EncodingError{Path: doc.Path, Err: ErrEmptyDocument}
	}

	img := &NormalizedImage{Data: data, Format: doc.Format, SourcePages: 1}
	if n.maxDimension <= 0 {
		return img, nil
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &EncodingError{Path: doc.Path, Err: fmt.Errorf("decode image: %w", err)}
	}
	if !n.exceedsLimit(src) {
		return img, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, n.fit(src), imaging.PNG); err != nil {
		return nil, &EncodingError{Path: doc.Path, Err: fmt.Errorf("encode resized image: %w", err)}
	}
	img.Data = buf.Bytes()
	img.Format = FormatPNG
	return img, nil
}

func (n *Normalizer) normalizePDF(ctx context.Context, doc Document) (*NormalizedImage, error) {
	pages := n.probePageCount(doc.Path)

	renderDir, err := os.MkdirTemp(n.tempDir, "invoice-render-*")
	if err != nil {
		return nil, &ConversionError{Path: doc.Path, Details: "create render directory", Err: err}
	}
	defer func() {
		if err := os.RemoveAll(renderDir); err != nil {
			n.log.Warn().Err(err).Str("dir", renderDir).Msg("Failed to clean up render directory")
			return
		}
		n.log.Debug().Str("dir", renderDir).Msg("Cleaned up render directory")
	}()

	n.log.Info().
		Str("file", doc.Path).
		Str("dir", renderDir).
		Int("pages", pages).
		Msg("Converting PDF first page to image")

	rendered, err := n.rasterizer.RenderFirstPage(ctx, doc.Path, renderDir)
	if err != nil {
		return nil, &ConversionError{Path: doc.Path, Details: "render first page", Err: err}
	}
	if len(rendered) == 0 {
		return nil, &ConversionError{Path: doc.Path, Err: ErrNoPages}
	}

	src, err := imaging.Open(rendered[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrArtifactMissing, rendered[0])
		}
		return nil, &ConversionError{Path: doc.Path, Details: "open rendered page", Err: err}
	}
	if n.exceedsLimit(src) {
		src = n.fit(src)
	}

	artifact := filepath.Join(renderDir, renderedPageName)
	if err := imaging.Save(src, artifact); err != nil {
		return nil, &ConversionError{Path: doc.Path, Details: "save first page", Err: err}
	}
	if _, err := os.Stat(artifact); err != nil {
		return nil, &ConversionError{Path: doc.Path, Details: artifact, Err: ErrArtifactMissing}
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		return nil, &EncodingError{Path: artifact, Err: err}
	}

	n.log.Info().
		Str("file", doc.Path).
		Int("bytes", len(data)).
		Msg("Prepared PDF page image")

	return &NormalizedImage{Data: data, Format: FormatPNG, SourcePages: pages}, nil
}

// probePageCount returns the number of pages in the PDF, or 0 when the file
// cannot be parsed. Only the first page is ever rendered.
func (n *Normalizer) probePageCount(path string) (pages int) {
	// ledongthuc/pdf panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			n.log.Debug().Interface("panic", r).Str("file", path).Msg("PDF page probe failed")
			pages = 0
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		n.log.Debug().Err(err).Str("file", path).Msg("PDF page probe failed")
		return 0
	}
	defer f.Close()

	pages = r.NumPage()
	if pages > 1 {
		n.log.Warn().
			Str("file", path).
			Int("pages", pages).
			Msg("Multi-page PDF, only the first page is extracted")
	}
	return pages
}

func (n *Normalizer) exceedsLimit(img image.Image) bool {
	if n.maxDimension <= 0 {
		return false
	}
	b := img.Bounds()
	return b.Dx() > n.maxDimension || b.Dy() > n.maxDimension
}

func (n *Normalizer) fit(img image.Image) image.Image {
	return imaging.Fit(img, n.maxDimension, n.maxDimension, imaging.Lanczos)
}
