package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string // Go layout used for the time field
	Output     string // stdout, stderr, or file path

	// File, when set, receives a second JSON stream at FileLevel.
	File      string
	FileLevel string

	// Rotation settings for file outputs.
	MaxSizeMB  int
	MaxBackups int
}

// DefaultConfig logs human-readable lines to stderr so stdout stays free
// for the extracted JSON.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
		FileLevel:  "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// Setup initializes the global logger with the provided configuration
func Setup(config LogConfig) error {
	level, err := parseLevel(config.Level, "info")
	if err != nil {
		return err
	}

	output := openOutput(config.Output, config)
	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: formatWriter(output, config)},
			Level:  level,
		},
	}
	globalLevel := level

	if config.File != "" {
		fileLevel, err := parseLevel(config.FileLevel, "info")
		if err != nil {
			return err
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: rotatingFile(config.File, config)},
			Level:  fileLevel,
		})
		if fileLevel < globalLevel {
			globalLevel = fileLevel
		}
	}
	zerolog.SetGlobalLevel(globalLevel)

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Logger()

	return nil
}

func parseLevel(value, fallback string) (zerolog.Level, error) {
	if value == "" {
		value = fallback
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}

func openOutput(target string, config LogConfig) io.Writer {
	switch target {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	}
	return rotatingFile(target, config)
}

// rotatingFile opens path lazily on first write and rolls it over once it
// reaches MaxSizeMB.
func rotatingFile(path string, config LogConfig) *lumberjack.Logger {
	maxSize := config.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: config.MaxBackups,
	}
}

// formatWriter wraps out in a console writer unless JSON was requested.
func formatWriter(out io.Writer, config LogConfig) io.Writer {
	if strings.EqualFold(config.Format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: config.TimeFormat,
		NoColor:    out != os.Stdout && out != os.Stderr,
	}
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return GetLogger().With().Str("component", component).Logger()
}

// WithRequestID returns a copy of l tagged with a request ID field.
func WithRequestID(l zerolog.Logger, requestID string) zerolog.Logger {
	return l.With().Str("request_id", requestID).Logger()
}
