package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sagarsiwach/invoice-parser/internal/logger"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
)

// preflightTimeout bounds each preflight request.
const preflightTimeout = 5 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the Ollama server is reachable and the model is installed",
	Long: `Query the Ollama server's version and installed models, and report
whether the configured vision model is available.`,
	Example: `  # Check the server from OLLAMA_URL
  invoice-parser check

  # Check another server and model
  invoice-parser check --url http://gpu-box:11434 --model llava:13b`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("check")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ollamaCfg := cfg.OllamaConfig()
	ollamaCfg.Timeout = preflightTimeout
	client := ollama.NewClient(ollamaCfg)

	_, err = runPreflight(cmd.Context(), client, cmd.OutOrStdout(), log)
	return err
}

// preflightReport is what the preflight learned about the server.
type preflightReport struct {
	Version        string
	ModelAvailable bool
	Models         []string
}

// runPreflight checks connectivity with /api/version and model availability
// with /api/tags. An unreachable server is an error; a missing model is only
// reported.
func runPreflight(ctx context.Context, client *ollama.Client, out io.Writer, log zerolog.Logger) (*preflightReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	version, err := client.Version(ctx)
	if err != nil {
		log.Error().Err(err).Str("url", client.BaseURL()).Msg("API connection failed")
		fmt.Fprintf(out, "✗ Could not connect to Ollama API: %v\n", err)
		return nil, fmt.Errorf("please ensure Ollama is running and accessible at %s: %w", client.BaseURL(), err)
	}
	fmt.Fprintf(out, "✓ Connected to Ollama API at %s\n", client.BaseURL())
	fmt.Fprintf(out, "✓ Ollama version: %s\n", valueOr(version.Version, "unknown"))

	report := &preflightReport{Version: version.Version}

	tags, err := client.Tags(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list models")
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	report.Models = tags.Names()
	report.ModelAvailable = tags.HasModel(client.Model())

	if report.ModelAvailable {
		fmt.Fprintf(out, "✓ Model %s is available\n", client.Model())
	} else {
		log.Warn().
			Str("model", client.Model()).
			Strs("available", report.Models).
			Msg("Model not found on server")
		fmt.Fprintf(out, "⚠ Model %s not found in available models. Available models: %s\n",
			client.Model(), strings.Join(report.Models, ", "))
	}

	return report, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
