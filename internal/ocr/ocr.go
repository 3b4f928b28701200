package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docextract-backend/internal/shared/telemetry"
)

// exitAlreadyDoneOCR is ocrmypdf's exit status when the input already has a text layer.
const exitAlreadyDoneOCR = 6

type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Extra env entries override the process environment.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	return cmd.CombinedOutput()
}

type Config struct {
	Binary        string
	UnpaperBinary string
	TesseractPath string
	Language      string
	Timeout       time.Duration
	ProbeTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Binary:        "ocrmypdf",
		UnpaperBinary: "unpaper",
		Language:      "eng",
		Timeout:       10 * time.Minute,
		ProbeTimeout:  5 * time.Second,
	}
}

type Options struct {
	Force    bool
	Advanced bool
}

// Result describes one preprocessing attempt. Path is the PDF later stages should read:
// the OCR output, the original input when OCR was skipped, or empty on failure.
type Result struct {
	Path     string
	Status   Status
	Advanced bool
	Err      error
}

// Preprocessor produces a searchable PDF/A copy of an input document via ocrmypdf.
type Preprocessor struct {
	cfg    Config
	runner Runner
}

func New(cfg Config, runner Runner) *Preprocessor {
	def := DefaultConfig()
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.UnpaperBinary == "" {
		cfg.UnpaperBinary = def.UnpaperBinary
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Preprocessor{cfg: cfg, runner: runner}
}

// OutputDir is the sibling directory that receives processed copies.
func OutputDir(input string) string {
	return filepath.Join(filepath.Dir(input), "processed")
}

// OutputPath is where the processed copy of input is written.
func OutputPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(OutputDir(input), stem+"_ocr.pdf")
}

// RemoveOutput deletes the processed copy of input and the output directory once empty.
func RemoveOutput(input string) error {
	if err := os.Remove(OutputPath(input)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	entries, err := os.ReadDir(OutputDir(input))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return os.Remove(OutputDir(input))
	}
	return nil
}

// Probe reports whether unpaper is callable, which advanced cleanup requires.
func (p *Preprocessor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()
	_, err := p.runner.Run(ctx, p.env(), p.cfg.UnpaperBinary, "--version")
	if err != nil {
		telemetry.Debug("ocr.probe_unavailable", map[string]any{"binary": p.cfg.UnpaperBinary, "error": err.Error()})
		return false
	}
	return true
}

// Run preprocesses input. A document that already carries text yields StatusSkipped
// with the original path; any other failure yields StatusFailed.
func (p *Preprocessor) Run(ctx context.Context, input string, opts Options) Result {
	advanced := opts.Advanced && p.Probe(ctx)
	if opts.Advanced && !advanced {
		telemetry.Warn("ocr.advanced_unavailable", map[string]any{"input": input})
	}

	out := OutputPath(input)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{Status: StatusFailed, Advanced: advanced, Err: fmt.Errorf("create output dir: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	start := time.Now()
	output, err := p.runner.Run(runCtx, p.env(), p.cfg.Binary, p.args(input, out, opts.Force, advanced)...)
	fields := map[string]any{
		"input":       input,
		"force":       opts.Force,
		"advanced":    advanced,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err == nil {
		fields["output"] = out
		telemetry.Info("ocr.processed", fields)
		return Result{Path: out, Status: StatusProcessed, Advanced: advanced}
	}

	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) && coded.ExitCode() == exitAlreadyDoneOCR {
		telemetry.Info("ocr.skipped_prior_text", fields)
		return Result{Path: input, Status: StatusSkipped, Advanced: advanced}
	}

	fields["error"] = err.Error()
	fields["output_tail"] = tail(string(output), 400)
	telemetry.Warn("ocr.failed", fields)
	return Result{Status: StatusFailed, Advanced: advanced, Err: fmt.Errorf("ocrmypdf: %w", err)}
}

func (p *Preprocessor) args(input, output string, force, advanced bool) []string {
	args := []string{
		"--deskew",
		"-l", p.cfg.Language,
		"--tesseract-pagesegmode", "1",
		"--output-type", "pdfa",
		"--optimize", "1",
	}
	if force {
		args = append(args, "--force-ocr")
	}
	if advanced {
		args = append(args, "--clean", "--remove-background")
	}
	return append(args, input, output)
}

func (p *Preprocessor) env() []string {
	if p.cfg.TesseractPath == "" {
		return nil
	}
	dir := p.cfg.TesseractPath
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	return []string{"PATH=" + dir + string(os.PathListSeparator) + os.Getenv("PATH")}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
