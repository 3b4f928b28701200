package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/extract"
	"docextract-backend/internal/extractions"
	"docextract-backend/internal/ocr"
	"docextract-backend/internal/queue"
	"docextract-backend/internal/shared/metrics"
	"docextract-backend/internal/shared/storage/object"
	"docextract-backend/internal/shared/telemetry"
)

var (
	// ErrSuperseded means a newer run owns the document; this run committed nothing.
	ErrSuperseded = errors.New("extraction superseded by a newer run")
	// ErrFileMissing means the document's stored file could not be found.
	ErrFileMissing = errors.New("document file missing")
)

// Engine is the extraction engine. *extract.Engine satisfies it.
type Engine interface {
	ExtractAll(ctx context.Context, path string, opts extract.Options) (*extract.Result, error)
}

// Outcome is the result of a completed run.
type Outcome struct {
	Document documents.Document
	Rows     []extractions.Extraction
	Payload  *extract.Result
}

// Controller owns the pending -> processing -> completed/failed lifecycle.
type Controller struct {
	Docs        documents.Repo
	Extractions extractions.Repo
	Files       object.Localizer
	Engine      Engine
	Writer      ResultWriter
	Jobs        queue.Client
	ForceOCR    bool
	Now         func() time.Time
}

// Start moves a caller's document to processing and stamps the run.
func (c *Controller) Start(ctx context.Context, userID, documentID string, useOCR, useAdvanced bool) (Run, documents.Document, error) {
	doc, err := c.lookup(ctx, userID, documentID)
	if err != nil {
		return Run{}, documents.Document{}, err
	}
	run := Run{
		DocumentID:  doc.ID,
		StartedAt:   documents.Stamp(c.now()),
		UseOCR:      useOCR,
		UseAdvanced: useAdvanced,
	}
	if err := c.Docs.MarkProcessing(ctx, doc.ID, run.StartedAt); err != nil {
		return Run{}, documents.Document{}, fmt.Errorf("mark processing: %w", err)
	}

	prev := doc.Status
	doc.Status = documents.StatusProcessing
	doc.StartedAt = &run.StartedAt
	doc.CompletedAt = nil
	doc.Error = nil

	metrics.IncExtractionStarted()
	logTransition(doc.ID, prev, documents.StatusProcessing, map[string]any{
		"use_ocr":      useOCR,
		"use_advanced": useAdvanced,
	})
	return run, doc, nil
}

// Execute performs a started run and records exactly one terminal transition.
func (c *Controller) Execute(ctx context.Context, run Run) (out *Outcome, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			out = nil
			c.fail(ctx, run, err)
		}
		metrics.ObserveExtractionDurationMs(float64(time.Since(start).Milliseconds()))
	}()

	out, err = c.execute(ctx, run)
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			metrics.IncExtractionSuperseded()
			telemetry.Warn("extraction.superseded", map[string]any{"document_id": run.DocumentID})
			return nil, err
		}
		if failErr := c.fail(ctx, run, err); errors.Is(failErr, ErrSuperseded) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	return out, nil
}

func (c *Controller) execute(ctx context.Context, run Run) (*Outcome, error) {
	doc, err := c.Docs.Get(ctx, run.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != documents.StatusProcessing || doc.StartedAt == nil || !doc.StartedAt.Equal(run.StartedAt) {
		return nil, ErrSuperseded
	}

	path, err := c.Files.LocalPath(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, doc.StoredFilename)
		}
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	if run.UseOCR {
		defer func() {
			if err := ocr.RemoveOutput(path); err != nil {
				telemetry.Warn("extraction.ocr_cleanup_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
			}
		}()
	}

	payload, err := c.Engine.ExtractAll(ctx, path, extract.Options{
		UseOCR:      run.UseOCR,
		UseAdvanced: run.UseAdvanced,
		ForceOCR:    c.ForceOCR,
	})
	if err != nil {
		if errors.Is(err, extract.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrFileMissing, err)
		}
		return nil, err
	}

	completedAt := documents.Stamp(c.now())
	if completedAt.Before(run.StartedAt) {
		completedAt = run.StartedAt
	}
	rows := BuildRows(doc.ID, payload, completedAt)
	summary := buildSummary(payload, len(rows), completedAt)
	if err := c.Writer.Complete(ctx, run, rows, summary, completedAt); err != nil {
		return nil, err
	}

	doc.Status = documents.StatusCompleted
	doc.CompletedAt = &completedAt
	doc.Summary = &summary
	doc.Error = nil

	metrics.IncExtractionCompleted()
	logTransition(doc.ID, documents.StatusProcessing, documents.StatusCompleted, map[string]any{
		"tables":     summary.TablesFound,
		"statistics": summary.StatisticsFound,
		"warnings":   len(payload.Warnings),
	})
	return &Outcome{Document: doc, Rows: rows, Payload: payload}, nil
}

func (c *Controller) fail(ctx context.Context, run Run, cause error) error {
	msg := sanitizeError(cause)
	completedAt := documents.Stamp(c.now())
	if completedAt.Before(run.StartedAt) {
		completedAt = run.StartedAt
	}
	err := c.Writer.Fail(context.WithoutCancel(ctx), run, msg, completedAt)
	switch {
	case errors.Is(err, ErrSuperseded):
		metrics.IncExtractionSuperseded()
		telemetry.Warn("extraction.superseded", map[string]any{"document_id": run.DocumentID, "error": msg})
	case err != nil:
		telemetry.Error("extraction.fail_record_failed", map[string]any{"document_id": run.DocumentID, "error": err.Error(), "cause": msg})
	default:
		metrics.IncExtractionFailed()
		logTransition(run.DocumentID, documents.StatusProcessing, documents.StatusFailed, map[string]any{"error": msg})
	}
	return err
}

// Extract runs a full extraction synchronously.
func (c *Controller) Extract(ctx context.Context, userID, documentID string, useOCR, useAdvanced bool) (*Outcome, error) {
	run, _, err := c.Start(ctx, userID, documentID, useOCR, useAdvanced)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, run)
}

// StartBackground starts a run and hands it to the job queue. The caller observes the
// result by polling the document.
func (c *Controller) StartBackground(ctx context.Context, userID, documentID string, useOCR, useAdvanced bool) (documents.Document, error) {
	if c.Jobs == nil {
		return documents.Document{}, errors.New("no job queue configured")
	}
	run, doc, err := c.Start(ctx, userID, documentID, useOCR, useAdvanced)
	if err != nil {
		return documents.Document{}, err
	}
	msg := queue.Message{
		DocumentID:  run.DocumentID,
		StartedAt:   run.StartedAt,
		UseOCR:      run.UseOCR,
		UseAdvanced: run.UseAdvanced,
		RequestID:   requestIDFromContext(ctx),
		EnqueuedAt:  time.Now().UTC().Format(time.RFC3339),
		Version:     queue.MessageVersion,
	}
	if err := c.Jobs.Send(ctx, msg); err != nil {
		_ = c.fail(ctx, run, fmt.Errorf("enqueue extraction: %w", err))
		return documents.Document{}, fmt.Errorf("enqueue extraction: %w", err)
	}
	telemetry.Info("queue.enqueued", map[string]any{"document_id": run.DocumentID, "request_id": msg.RequestID})
	return doc, nil
}

// Process executes a queued run.
func (c *Controller) Process(ctx context.Context, msg queue.Message) error {
	_, err := c.Execute(ctx, Run{
		DocumentID:  msg.DocumentID,
		StartedAt:   msg.StartedAt,
		UseOCR:      msg.UseOCR,
		UseAdvanced: msg.UseAdvanced,
	})
	return err
}

// Listing is a document's extractions grouped by type.
type Listing struct {
	DocumentID        string                                  `json:"document_id"`
	DocumentFilename  string                                  `json:"document_filename"`
	ExtractionStatus  documents.Status                        `json:"extraction_status"`
	ExtractionSummary *documents.Summary                      `json:"extraction_summary"`
	Extractions       map[extractions.Type][]extractions.Item `json:"extractions"`
	TotalExtractions  int                                     `json:"total_extractions"`
}

// List returns the caller's document with its extractions.
func (c *Controller) List(ctx context.Context, userID, documentID string) (Listing, []extractions.Extraction, error) {
	doc, err := c.lookup(ctx, userID, documentID)
	if err != nil {
		return Listing{}, nil, err
	}
	rows, err := c.Extractions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return Listing{}, nil, err
	}
	return Listing{
		DocumentID:        doc.ID,
		DocumentFilename:  doc.FileName,
		ExtractionStatus:  doc.Status,
		ExtractionSummary: doc.Summary,
		Extractions:       extractions.Group(rows),
		TotalExtractions:  len(rows),
	}, rows, nil
}

func (c *Controller) lookup(ctx context.Context, userID, documentID string) (documents.Document, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return documents.Document{}, documents.ErrNotFound
	}
	return c.Docs.GetByID(ctx, userID, documentID)
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func logTransition(documentID string, from, to documents.Status, extra map[string]any) {
	fields := map[string]any{
		"document_id":       documentID,
		"status_transition": string(from) + "->" + string(to),
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("extraction.status", fields)
}

type requestIDKey struct{}

// WithRequestID tags ctx so queued jobs carry the originating request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
