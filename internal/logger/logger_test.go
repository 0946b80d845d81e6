package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	prevTimeFormat := zerolog.TimeFieldFormat
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		zerolog.TimeFieldFormat = prevTimeFormat
	})
}

func TestSetupWritesLogFileAtItsOwnLevel(t *testing.T) {
	restoreGlobals(t)
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.Format = "json"
	cfg.Output = filepath.Join(dir, "console.log")
	cfg.File = filepath.Join(dir, "invoice-parser.log")

	require.NoError(t, Setup(cfg))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	componentLogger := WithComponent("test")
	componentLogger.Info().Msg("converted page")
	globalLogger := GetLogger()
	globalLogger.Warn().Msg("model missing")

	file, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(file), `"message":"converted page"`)
	assert.Contains(t, string(file), `"component":"test"`)
	assert.Contains(t, string(file), `"message":"model missing"`)

	primary, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.NotContains(t, string(primary), "converted page")
	assert.Contains(t, string(primary), "model missing")
}

func TestSetupWithoutFileUsesPrimaryLevel(t *testing.T) {
	restoreGlobals(t)
	cfg := DefaultConfig()
	cfg.Level = "error"
	cfg.Output = filepath.Join(t.TempDir(), "out.log")

	require.NoError(t, Setup(cfg))
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestSetupRejectsInvalidLevels(t *testing.T) {
	restoreGlobals(t)
	cfg := DefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, Setup(cfg))

	cfg = DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "out.log")
	cfg.File = filepath.Join(t.TempDir(), "file.log")
	cfg.FileLevel = "chatty"
	assert.Error(t, Setup(cfg))
}

func TestWithRequestIDTagsLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.log")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	requestLogger := WithRequestID(zerolog.New(out), "req-1")
	requestLogger.Error().Msg("boom")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-1"`)
}
