package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Rasterizer renders the first page of a PDF into outDir and returns the
// paths of the images it wrote. Zero paths with a nil error means the PDF had
// nothing to render.
type Rasterizer interface {
	RenderFirstPage(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	log zerolog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.log.Error().
			Err(err).
			Str("cmd", name).
			Str("args", strings.Join(args, " ")).
			Dur("duration", dur).
			Str("stderr", truncate(errb.String(), 8<<10)).
			Msg("exec failed")
	} else {
		r.log.Debug().
			Str("cmd", name).
			Str("args", strings.Join(args, " ")).
			Dur("duration", dur).
			Int("stdout_bytes", out.Len()).
			Msg("exec ok")
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	binary string
	dpi    int
	runner Runner
}

// NewPdftoppmRasterizer returns a rasterizer that runs binary (usually
// "pdftoppm") at the given resolution.
func NewPdftoppmRasterizer(binary string, dpi int, log zerolog.Logger) *PdftoppmRasterizer {
	return NewPdftoppmRasterizerWithRunner(binary, dpi, execRunner{log: log})
}

// NewPdftoppmRasterizerWithRunner is NewPdftoppmRasterizer with an explicit
// command runner (for testing).
func NewPdftoppmRasterizerWithRunner(binary string, dpi int, runner Runner) *PdftoppmRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &PdftoppmRasterizer{binary: binary, dpi: dpi, runner: runner}
}

// RenderFirstPage runs `pdftoppm -f 1 -l 1 -r <dpi> -png <pdf> <outDir>/page`
// and collects the PNG files it produced.
func (p *PdftoppmRasterizer) RenderFirstPage(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	_, errb, err := p.runner.Run(ctx, p.binary,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(p.dpi),
		"-png", pdfPath, prefix)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", p.binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", p.binary, err)
	}

	// pdftoppm names pages prefix-1.png, prefix-01.png, ... depending on page count.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
