package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
	"github.com/sagarsiwach/invoice-parser/internal/schema"
)

type fakeNormalizer struct {
	img   *document.NormalizedImage
	err   error
	calls int
}

func (f *fakeNormalizer) Normalize(_ context.Context, doc document.Document) (*document.NormalizedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry()
	require.NoError(t, err)
	return r
}

// ollamaServer answers /api/generate with the given status and, for 200,
// wraps reply in the generate response envelope.
func ollamaServer(t *testing.T, status int, reply string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
			return
		}
		body, _ := json.Marshal(map[string]any{"model": "m", "response": reply, "done": true})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newProcessor(t *testing.T, srv *httptest.Server, norm DocumentNormalizer) *VisionProcessor {
	t.Helper()
	client := ollama.NewClient(ollama.Config{BaseURL: srv.URL, Model: "granite3.2-vision:latest"})
	return NewVisionProcessorWith(norm, client, newRegistry(t), client.Model())
}

func pngImage() *document.NormalizedImage {
	return &document.NormalizedImage{Data: []byte("fake-png"), Format: document.FormatPNG, SourcePages: 1}
}

func TestProcessInvoiceRecoversRecordFromProse(t *testing.T) {
	srv, calls := ollamaServer(t, http.StatusOK,
		"Here is the result: {\"invoice_number\":\"A1\",\"invoice_date\":\"2024-03-01\",\"total_amount\":10} Thanks!")
	norm := &fakeNormalizer{img: pngImage()}
	p := newProcessor(t, srv, norm)

	res, err := p.ProcessInvoice(context.Background(), "invoice.png")
	require.NoError(t, err)

	assert.Equal(t, "A1", res.Invoice.InvoiceNumber())
	total, ok := res.Invoice.TotalAmount()
	assert.True(t, ok)
	assert.Equal(t, 10.0, total)
	assert.True(t, res.Complete())
	assert.Equal(t, "granite3.2-vision:latest", res.Model)
	assert.Equal(t, document.FormatPNG, res.SourceFormat)
	assert.Equal(t, len("fake-png"), res.ImageBytes)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, norm.calls)
}

func TestProcessInvoiceAcceptsInconsistentItems(t *testing.T) {
	srv, _ := ollamaServer(t, http.StatusOK,
		`{"invoice_number":"B2","invoice_date":"2024-01-01","total_amount":9,`+
			`"items":[{"description":"X","quantity":2,"unit_price":5,"total_price":9}]}`)
	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})

	res, err := p.ProcessInvoice(context.Background(), "invoice.jpg")
	require.NoError(t, err)

	items := res.Invoice.Items()
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"description": "X",
		"quantity":    2.0,
		"unit_price":  5.0,
		"total_price": 9.0,
	}, items[0])
}

func TestProcessInvoiceReturnsPartialRecord(t *testing.T) {
	srv, _ := ollamaServer(t, http.StatusOK, `{"vendor":{"name":"ACME"},"total_amount":12}`)
	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})

	res, err := p.ProcessInvoice(context.Background(), "invoice.png")
	require.NoError(t, err)

	assert.False(t, res.Complete())
	assert.Equal(t, []string{"invoice_number", "invoice_date"}, res.Missing)
	assert.Equal(t, "ACME", res.Invoice.Party("vendor")["name"])
}

func TestProcessInvoiceMissingFieldsFollowRegistrySchema(t *testing.T) {
	srv, _ := ollamaServer(t, http.StatusOK, `{"invoice_number":"A1","invoice_date":"2024-03-01","total_amount":10}`)
	registry, err := schema.NewRegistryFromSchema([]byte(`{"type":"object","required":["invoice_number","currency"]}`))
	require.NoError(t, err)
	client := ollama.NewClient(ollama.Config{BaseURL: srv.URL, Model: "m"})
	p := NewVisionProcessorWith(&fakeNormalizer{img: pngImage()}, client, registry, client.Model())

	res, err := p.ProcessInvoice(context.Background(), "invoice.png")
	require.NoError(t, err)

	assert.Equal(t, []string{"currency"}, res.Missing)
	assert.False(t, res.Complete())
}

func TestProcessInvoiceRequestError(t *testing.T) {
	srv, calls := ollamaServer(t, http.StatusInternalServerError, "internal error")
	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})

	_, err := p.ProcessInvoice(context.Background(), "invoice.png")

	var reqErr *ollama.RequestError
	require.True(t, errors.As(err, &reqErr), "expected RequestError, got %v", err)
	assert.Equal(t, 500, reqErr.StatusCode)
	assert.Equal(t, "internal error", reqErr.Body)

	var procErr *ProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, "Extract", procErr.Op)
	assert.NotEmpty(t, procErr.RequestID)
	assert.Equal(t, 1, *calls)
}

func TestProcessInvoiceRecoveryError(t *testing.T) {
	srv, _ := ollamaServer(t, http.StatusOK, "no json here")
	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})

	_, err := p.ProcessInvoice(context.Background(), "invoice.png")

	var recErr *RecoveryError
	require.True(t, errors.As(err, &recErr), "expected RecoveryError, got %v", err)
	assert.Equal(t, "no json here", recErr.Raw)
}

func TestProcessInvoiceRejectsNonObjectJSON(t *testing.T) {
	srv, _ := ollamaServer(t, http.StatusOK, `["not", "an", "invoice"]`)
	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})

	_, err := p.ProcessInvoice(context.Background(), "invoice.png")

	var recErr *RecoveryError
	require.True(t, errors.As(err, &recErr))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestProcessInvoiceConversionErrorSkipsInference(t *testing.T) {
	srv, calls := ollamaServer(t, http.StatusOK, "{}")
	convErr := &document.ConversionError{Path: "invoice.pdf", Err: document.ErrNoPages}
	p := newProcessor(t, srv, &fakeNormalizer{err: convErr})

	_, err := p.ProcessInvoice(context.Background(), "invoice.pdf")

	var got *document.ConversionError
	require.True(t, errors.As(err, &got))
	assert.ErrorIs(t, err, document.ErrNoPages)
	assert.Zero(t, *calls)
}

func TestProcessInvoiceUnsupportedFormat(t *testing.T) {
	srv, calls := ollamaServer(t, http.StatusOK, "{}")
	norm := &fakeNormalizer{img: pngImage()}
	p := newProcessor(t, srv, norm)

	_, err := p.ProcessInvoice(context.Background(), "invoice.tiff")
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
	assert.Zero(t, norm.calls)
	assert.Zero(t, *calls)
}

func TestProcessInvoiceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := newProcessor(t, srv, &fakeNormalizer{img: pngImage()})
	_, err := p.ProcessInvoice(context.Background(), "invoice.png")

	var trErr *ollama.TransportError
	assert.True(t, errors.As(err, &trErr), "expected TransportError, got %v", err)
}
