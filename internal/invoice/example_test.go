package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/invoice"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
)

// Example demonstrates extracting an invoice with the default pipeline.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	processor, err := invoice.NewVisionProcessor(invoice.Config{
		Ollama: ollama.Config{
			BaseURL: "http://localhost:11434",
			Model:   "granite3.2-vision:latest",
			Timeout: 120 * time.Second,
		},
		Normalizer: document.NormalizerConfig{DPI: 200},
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := processor.ProcessInvoice(ctx, "sample_invoice.pdf")
	if err != nil {
		var reqErr *ollama.RequestError
		var convErr *document.ConversionError
		switch {
		case errors.As(err, &reqErr):
			log.Fatalf("Ollama returned %d: %s", reqErr.StatusCode, reqErr.Body)
		case errors.As(err, &convErr):
			log.Fatalf("Could not render PDF: %v", convErr)
		default:
			log.Fatalf("Failed to process invoice: %v", err)
		}
	}

	total, _ := result.Invoice.TotalAmount()
	fmt.Printf("Invoice %s: total %.2f\n", result.Invoice.InvoiceNumber(), total)
	if !result.Complete() {
		fmt.Printf("Missing fields: %v\n", result.Missing)
	}
}

func ExampleRecover() {
	value, err := invoice.Recover(`Here is the result: {"invoice_number":"A1","total_amount":10} Thanks!`)
	if err != nil {
		log.Fatal(err)
	}
	record := value.(map[string]any)
	fmt.Println(record["invoice_number"], record["total_amount"])
	// Output: A1 10
}
