package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sagarsiwach/invoice-parser/internal/config"
	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/invoice"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
	"github.com/sagarsiwach/invoice-parser/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured invoice data from a PDF or image",
	Long: `Send an invoice to the vision model and print the extracted data as JSON.

Supported inputs are PDF, PNG and JPEG. For PDFs only the first page is
rendered and analyzed. The model is asked to answer with JSON only; if it
wraps the JSON in explanations, the outermost {...} block is used.

Before extracting, the command checks that the Ollama server is reachable
and that the model is installed (skip with --skip-check).`,
	Example: `  # Extract invoice data to stdout
  invoice-parser extract invoice.pdf

  # Save to invoice_YYYYMMDD_HHMMSS.json in the current directory
  invoice-parser extract scan.jpg --save

  # Write only the invoice object to a file
  invoice-parser extract invoice.png -o invoice.json --bare

  # Use a different model and keep the raw reply for debugging
  invoice-parser extract invoice.pdf --model llava:13b --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput represents the JSON output structure for invoice extraction
type ExtractOutput struct {
	// Invoice contains the recovered invoice record
	Invoice models.Invoice `json:"invoice"`

	// MissingFields lists required fields the model did not return
	MissingFields []string `json:"missing_fields,omitempty"`

	// RawResponse is the model reply (only with --raw)
	RawResponse string `json:"raw_response,omitempty"`

	// Metadata contains processing information
	Metadata ProcessingMetadata `json:"metadata"`
}

// ProcessingMetadata contains information about the processing operation
type ProcessingMetadata struct {
	FileName           string        `json:"file_name"`
	FileSize           int64         `json:"file_size_bytes"`
	Format             string        `json:"format"`
	Pages              int           `json:"pages,omitempty"`
	ImageSize          int           `json:"image_size_bytes"`
	Model              string        `json:"model"`
	Endpoint           string        `json:"endpoint"`
	RequestID          string        `json:"request_id"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("save", false, "Save to invoice_<timestamp>.json when no --output is given")
	extractCmd.Flags().Bool("bare", false, "Output only the invoice object, without metadata")
	extractCmd.Flags().Bool("raw", false, "Include the raw model reply in the output")
	extractCmd.Flags().Bool("skip-check", false, "Skip the server and model preflight check")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")
	bare, _ := cmd.Flags().GetBool("bare")
	includeRaw, _ := cmd.Flags().GetBool("raw")
	skipCheck, _ := cmd.Flags().GetBool("skip-check")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	fileInfo, err := validateInvoiceFile(path, log)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", path).
		Str("url", cfg.OllamaURL).
		Str("model", cfg.OllamaModel).
		Dur("timeout", cfg.OllamaTimeout).
		Msg("Starting invoice extraction")

	ctx, cancel := createExtractContext(cmd.Context(), log)
	defer cancel()

	if !skipCheck {
		preflightCfg := cfg.OllamaConfig()
		preflightCfg.Timeout = preflightTimeout
		if _, err := runPreflight(ctx, ollama.NewClient(preflightCfg), cmd.ErrOrStderr(), log); err != nil {
			return err
		}
	}

	processor, err := invoice.NewVisionProcessor(invoice.Config{
		Ollama:     cfg.OllamaConfig(),
		Normalizer: cfg.NormalizerConfig(),
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice processor: %w", err)
	}

	result, err := processor.ProcessInvoice(ctx, path)
	if err != nil {
		return handleExtractError(err, cfg, log)
	}

	output := ExtractOutput{
		Invoice:       result.Invoice,
		MissingFields: result.Missing,
		Metadata: ProcessingMetadata{
			FileName:           filepath.Base(path),
			FileSize:           fileInfo.Size(),
			Format:             result.SourceFormat.String(),
			Pages:              result.SourcePages,
			ImageSize:          result.ImageBytes,
			Model:              result.Model,
			Endpoint:           cfg.OllamaURL,
			RequestID:          result.RequestID,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingTime,
		},
	}
	if includeRaw {
		output.RawResponse = result.RawResponse
	}

	var payload any = output
	if bare {
		payload = result.Invoice
	}

	return writeExtractOutput(payload, resolveOutputPath(outputPath, save, time.Now()), cmd.OutOrStdout(), log)
}

// validateInvoiceFile checks that path is a non-empty regular file with a
// supported extension.
func validateInvoiceFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msg("Invoice file not found")
			return nil, fmt.Errorf("invoice file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msg("Permission denied accessing invoice file")
			return nil, fmt.Errorf("permission denied accessing invoice file: %s", path)
		}
		return nil, fmt.Errorf("error accessing invoice file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", path).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if _, err := document.NewDocument(path); err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Unsupported invoice file")
		return nil, err
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", path).
			Msg("Invoice file is empty")
		return nil, fmt.Errorf("invoice file is empty: %s", path)
	}

	return fileInfo, nil
}

// createExtractContext returns a context that is canceled on SIGINT/SIGTERM.
func createExtractContext(parent context.Context, log zerolog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling invoice extraction")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleExtractError provides user-friendly error messages for extraction failures
func handleExtractError(err error, cfg *config.Config, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice extraction failed")

	var (
		transportErr  *ollama.TransportError
		requestErr    *ollama.RequestError
		conversionErr *document.ConversionError
		encodingErr   *document.EncodingError
		recoveryErr   *invoice.RecoveryError
		netErr        net.Error
	)

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("invoice extraction was canceled")
	case errors.As(err, &transportErr) &&
		(errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())):
		return fmt.Errorf("the model did not answer within %s. Try increasing --timeout or OLLAMA_TIMEOUT", cfg.OllamaTimeout)
	case errors.As(err, &transportErr):
		return fmt.Errorf("API request failed: could not reach Ollama at %s. Please ensure Ollama is running and accessible: %w",
			cfg.OllamaURL, err)
	case errors.As(err, &requestErr) && requestErr.StatusCode == 404:
		return fmt.Errorf("API Error: 404 - %s. Is model %q installed? Try: ollama pull %s",
			requestErr.Body, cfg.OllamaModel, cfg.OllamaModel)
	case errors.As(err, &requestErr):
		return fmt.Errorf("API Error: %d - %s", requestErr.StatusCode, requestErr.Body)
	case errors.As(err, &conversionErr) && errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("PDF conversion error: %s not found. Install poppler-utils or set PDFTOPPM_PATH", cfg.PdftoppmPath)
	case errors.As(err, &conversionErr):
		return fmt.Errorf("PDF conversion error: %w", err)
	case errors.As(err, &encodingErr):
		return fmt.Errorf("could not read invoice image: %w", err)
	case errors.As(err, &recoveryErr):
		log.Debug().Str("response", recoveryErr.Raw).Msg("Response content")
		return fmt.Errorf("no valid JSON found in the model response (rerun with LOG_LEVEL=debug to see it): %w", err)
	case errors.Is(err, document.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file type: %w", err)
	default:
		return fmt.Errorf("invoice extraction failed: %w", err)
	}
}

// resolveOutputPath returns the file to write, or "" for stdout. --save
// without --output picks invoice_YYYYMMDD_HHMMSS.json.
func resolveOutputPath(outputPath string, save bool, now time.Time) string {
	if outputPath != "" {
		return outputPath
	}
	if save {
		return fmt.Sprintf("invoice_%s.json", now.Format("20060102_150405"))
	}
	return ""
}

// writeExtractOutput writes payload as indented JSON to outputPath, or to
// stdout when outputPath is empty.
func writeExtractOutput(payload any, outputPath string, stdout io.Writer, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal invoice data to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if outputPath == "" {
		if _, err := stdout.Write(jsonData); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(jsonData)).
		Msg("Invoice data saved")

	return nil
}
