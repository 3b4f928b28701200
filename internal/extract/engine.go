package extract

import (
	"context"
	"errors"
	"fmt"
	"os"

	"docextract-backend/internal/ocr"
	"docextract-backend/internal/shared/metrics"
	"docextract-backend/internal/shared/telemetry"
)

var ErrFileNotFound = errors.New("input file not found")

const (
	StageOCR        = "ocr"
	StageTables     = "tables"
	StageStatistics = "statistics"
)

// Preprocessor is the OCR step. *ocr.Preprocessor satisfies it.
type Preprocessor interface {
	Run(ctx context.Context, input string, opts ocr.Options) ocr.Result
}

type Options struct {
	UseOCR      bool
	UseAdvanced bool
	ForceOCR    bool
}

// StageWarning records a stage that degraded to an empty result instead of failing the run.
type StageWarning struct {
	Stage   string `json:"stage"`
	Page    int    `json:"page,omitempty"`
	Message string `json:"message"`
}

type Result struct {
	Tables           []Table        `json:"tables"`
	Statistics       []Statistic    `json:"statistics"`
	OCRUsed          bool           `json:"ocr_used"`
	AdvancedFeatures bool           `json:"advanced_features"`
	OCRStatus        string         `json:"ocr_status,omitempty"`
	InputPDF         string         `json:"input_pdf"`
	OutputDirectory  string         `json:"output_directory"`
	Warnings         []StageWarning `json:"warnings,omitempty"`
}

// Engine turns a PDF into tables and statistics. It has no knowledge of persistence.
type Engine struct {
	OCR      Preprocessor
	Pages    PageSource
	Settings Settings
}

func New(pre Preprocessor, settings Settings) *Engine {
	return &Engine{OCR: pre, Pages: PDFPages{}, Settings: settings}
}

// ExtractAll runs OCR (optional), table detection and statistic detection on path.
// Only a missing input or a cancelled context is returned as an error; stage failures
// become warnings with empty results.
func (e *Engine) ExtractAll(ctx context.Context, path string, opts Options) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	res := &Result{
		Tables:           []Table{},
		Statistics:       []Statistic{},
		OCRUsed:          opts.UseOCR,
		AdvancedFeatures: opts.UseAdvanced,
		InputPDF:         path,
		OutputDirectory:  ocr.OutputDir(path),
	}

	source := path
	if opts.UseOCR {
		out, ok := e.preprocess(ctx, path, opts, res)
		if !ok {
			return res, ctx.Err()
		}
		source = out
	}

	pages, err := e.pages().Pages(ctx, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.warn(res, StageWarning{Stage: StageTables, Message: err.Error()})
		e.warn(res, StageWarning{Stage: StageStatistics, Message: err.Error()})
		return res, nil
	}

	for _, page := range pages {
		if page.Err != nil {
			e.warn(res, StageWarning{Stage: StageTables, Page: page.Number, Message: page.Err.Error()})
			e.warn(res, StageWarning{Stage: StageStatistics, Page: page.Number, Message: page.Err.Error()})
			continue
		}
		e.stage(res, StageTables, page.Number, func() {
			res.Tables = append(res.Tables, detectTables(page, opts.UseOCR, e.Settings.Tables)...)
		})
		e.stage(res, StageStatistics, page.Number, func() {
			res.Statistics = append(res.Statistics, detectStatistics(page, opts.UseOCR, e.Settings.Statistics)...)
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	telemetry.Info("extraction.engine_complete", map[string]any{
		"input":      path,
		"pages":      len(pages),
		"tables":     len(res.Tables),
		"statistics": len(res.Statistics),
		"ocr_status": res.OCRStatus,
		"warnings":   len(res.Warnings),
	})
	return res, nil
}

func (e *Engine) preprocess(ctx context.Context, path string, opts Options, res *Result) (string, bool) {
	if e.OCR == nil {
		res.OCRStatus = string(ocr.StatusFailed)
		e.warn(res, StageWarning{Stage: StageOCR, Message: "ocr preprocessor not configured"})
		return "", false
	}
	out := e.OCR.Run(ctx, path, ocr.Options{Force: opts.ForceOCR, Advanced: opts.UseAdvanced})
	res.OCRStatus = string(out.Status)
	res.AdvancedFeatures = opts.UseAdvanced && out.Advanced
	if out.Status == ocr.StatusFailed || out.Path == "" {
		msg := "ocr produced no output"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		e.warn(res, StageWarning{Stage: StageOCR, Message: msg})
		return "", false
	}
	return out.Path, true
}

// stage runs fn and converts a panic into a warning for that page.
func (e *Engine) stage(res *Result, name string, page int, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.warn(res, StageWarning{Stage: name, Page: page, Message: fmt.Sprint(rec)})
		}
	}()
	fn()
}

func (e *Engine) warn(res *Result, w StageWarning) {
	res.Warnings = append(res.Warnings, w)
	metrics.IncStageWarning()
	telemetry.Warn("extraction.stage_warning", map[string]any{
		"input":   res.InputPDF,
		"stage":   w.Stage,
		"page":    w.Page,
		"message": w.Message,
	})
}

func (e *Engine) pages() PageSource {
	if e.Pages == nil {
		return PDFPages{}
	}
	return e.Pages
}
