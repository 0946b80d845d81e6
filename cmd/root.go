package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarsiwach/invoice-parser/internal/config"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoice-parser",
	Short: "Extract structured data from invoice PDFs and images with a vision model",
	Long: `Invoice Parser sends an invoice (PDF or PNG/JPEG image) to a
vision-capable model served by Ollama and turns the model's reply into
structured JSON: invoice number, dates, vendor and customer details, line
items and totals.

PDFs are rendered with poppler's pdftoppm; only the first page is used.

Environment variables (also read from .env):
  OLLAMA_URL      - Ollama server URL (default ` + config.DefaultOllamaURL + `)
  OLLAMA_MODEL    - vision model name (default ` + config.DefaultOllamaModel + `)
  OLLAMA_TIMEOUT  - request timeout in seconds (default 120)
  PDFTOPPM_PATH   - pdftoppm binary (default pdftoppm)
  PDF_DPI         - PDF rendering resolution (default 200)
  LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT - logging`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("url", "", "Ollama server URL (overrides OLLAMA_URL)")
	rootCmd.PersistentFlags().String("model", "", "Vision model name (overrides OLLAMA_MODEL)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Inference request timeout in seconds (overrides OLLAMA_TIMEOUT)")
}

// loadConfig reads the environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.OllamaURL = url
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.OllamaModel = model
	}
	if secs, _ := cmd.Flags().GetInt("timeout"); secs > 0 {
		cfg.OllamaTimeout = time.Duration(secs) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
