package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sagarsiwach/invoice-parser/internal/document"
	"github.com/sagarsiwach/invoice-parser/internal/logger"
	"github.com/sagarsiwach/invoice-parser/internal/ollama"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "granite3.2-vision:latest"
)

type Config struct {
	// Ollama Configuration
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	// Rendering Configuration
	PdftoppmPath      string
	PDFDPI            int
	RenderTempDir     string
	MaxImageDimension int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogFile       string
	LogFileLevel  string
	LogMaxSizeMB  int
	LogMaxBackups int
}

func Load() (*Config, error) {
	timeoutSecs, err := getEnvInt("OLLAMA_TIMEOUT", 120)
	if err != nil {
		return nil, err
	}
	dpi, err := getEnvInt("PDF_DPI", 200)
	if err != nil {
		return nil, err
	}
	maxDim, err := getEnvInt("MAX_IMAGE_DIMENSION", 0)
	if err != nil {
		return nil, err
	}
	logMaxSize, err := getEnvInt("LOG_MAX_SIZE_MB", 10)
	if err != nil {
		return nil, err
	}
	logMaxBackups, err := getEnvInt("LOG_MAX_BACKUPS", 3)
	if err != nil {
		return nil, err
	}

	config := &Config{
		OllamaURL:         strings.TrimRight(getEnv("OLLAMA_URL", DefaultOllamaURL), "/"),
		OllamaModel:       getEnv("OLLAMA_MODEL", DefaultOllamaModel),
		OllamaTimeout:     time.Duration(timeoutSecs) * time.Second,
		PdftoppmPath:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
		PDFDPI:            dpi,
		RenderTempDir:     getEnv("RENDER_TEMP_DIR", ""),
		MaxImageDimension: maxDim,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:     getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:         getEnv("LOG_OUTPUT", "stderr"),
		LogFile:           getEnv("LOG_FILE", ""),
		LogFileLevel:      getEnv("LOG_FILE_LEVEL", "info"),
		LogMaxSizeMB:      logMaxSize,
		LogMaxBackups:     logMaxBackups,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the values that every pipeline needs. It is exported so
// commands can re-check after applying flag overrides.
func (c *Config) Validate() error {
	u, err := url.Parse(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("OLLAMA_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("OLLAMA_URL must use http or https, got %q", c.OllamaURL)
	}
	if u.Host == "" {
		return fmt.Errorf("OLLAMA_URL must include a host, got %q", c.OllamaURL)
	}
	if strings.TrimSpace(c.OllamaModel) == "" {
		return fmt.Errorf("OLLAMA_MODEL is required")
	}
	if c.OllamaTimeout <= 0 {
		return fmt.Errorf("OLLAMA_TIMEOUT must be positive")
	}
	if c.PDFDPI <= 0 {
		return fmt.Errorf("PDF_DPI must be positive")
	}
	if c.MaxImageDimension < 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must not be negative")
	}
	if c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive")
	}
	if c.LogMaxBackups < 0 {
		return fmt.Errorf("LOG_MAX_BACKUPS must not be negative")
	}
	return nil
}

// OllamaConfig returns the inference client settings.
func (c *Config) OllamaConfig() ollama.Config {
	return ollama.Config{
		BaseURL: c.OllamaURL,
		Model:   c.OllamaModel,
		Timeout: c.OllamaTimeout,
	}
}

// NormalizerConfig returns the document normalization settings.
func (c *Config) NormalizerConfig() document.NormalizerConfig {
	return document.NormalizerConfig{
		PdftoppmPath: c.PdftoppmPath,
		DPI:          c.PDFDPI,
		TempDir:      c.RenderTempDir,
		MaxDimension: c.MaxImageDimension,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		File:       c.LogFile,
		FileLevel:  c.LogFileLevel,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
