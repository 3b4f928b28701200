package main

// Extract tables and statistics from a local PDF:
//   go run ./cmd/extract [-ocr] [-advanced] [-force-ocr] [-settings file.toml] [-xlsx out.xlsx] file.pdf

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"docextract-backend/internal/extract"
	"docextract-backend/internal/extractions"
	"docextract-backend/internal/ocr"
	"docextract-backend/internal/pipeline"
	"docextract-backend/internal/shared/config"
	"docextract-backend/internal/shared/telemetry"
)

var errUsage = errors.New("usage: extract [-ocr] [-advanced] [-force-ocr] [-settings file.toml] [-xlsx out.xlsx] file.pdf")

type cliOptions struct {
	useOCR   bool
	advanced bool
	forceOCR bool
	settings string
	xlsx     string
	input    string
}

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.Options{Level: cfg.LogLevel, Format: "console", Stderr: true})
	defer telemetry.Sync()

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pre := ocr.New(ocr.Config{
		Binary:        cfg.OCR.OCRMyPDFPath,
		UnpaperBinary: cfg.OCR.UnpaperPath,
		TesseractPath: cfg.OCR.TesseractPath,
		Language:      cfg.OCR.Language,
		Timeout:       cfg.OCR.Timeout,
		ProbeTimeout:  cfg.OCR.ProbeTimeout,
	}, ocr.ExecRunner{})
	if err := run(ctx, opts, pre, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.useOCR, "ocr", false, "run OCR preprocessing before extraction")
	fs.BoolVar(&opts.advanced, "advanced", false, "enable deskew/rotation/cleanup during OCR")
	fs.BoolVar(&opts.forceOCR, "force-ocr", false, "rasterize and OCR pages that already have text")
	fs.StringVar(&opts.settings, "settings", "", "TOML file overriding extraction thresholds")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write the extractions as an XLSX workbook")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, errUsage
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, pre extract.Preprocessor, stdout io.Writer) error {
	settings := extract.DefaultSettings()
	if strings.TrimSpace(opts.settings) != "" {
		loaded, err := extract.LoadSettings(opts.settings)
		if err != nil {
			return err
		}
		settings = loaded
	}

	engine := extract.New(pre, settings)
	res, err := engine.ExtractAll(ctx, opts.input, extract.Options{
		UseOCR:      opts.useOCR,
		UseAdvanced: opts.advanced,
		ForceOCR:    opts.forceOCR,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if opts.xlsx == "" {
		return nil
	}
	name := strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
	rows := pipeline.BuildRows(name, res, time.Now().UTC())
	data, err := extractions.ExportXLSX(rows)
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	if err := os.WriteFile(opts.xlsx, data, 0o644); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	telemetry.Info("extract.xlsx_written", map[string]any{"path": opts.xlsx, "rows": len(rows)})
	return nil
}
