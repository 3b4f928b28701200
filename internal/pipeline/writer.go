package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/extractions"
)

// Run identifies one extraction attempt on a document.
type Run struct {
	DocumentID  string
	StartedAt   time.Time
	UseOCR      bool
	UseAdvanced bool
}

// ResultWriter commits terminal transitions. Both methods return ErrSuperseded when the
// document has moved on to a newer run, in which case nothing is written.
type ResultWriter interface {
	Complete(ctx context.Context, run Run, rows []extractions.Extraction, summary documents.Summary, completedAt time.Time) error
	Fail(ctx context.Context, run Run, message string, completedAt time.Time) error
}

// PGWriter commits a run in one transaction: guarded status update, optional purge of
// earlier rows, insert of the new rows.
type PGWriter struct {
	DB          *sql.DB
	KeepHistory bool
}

func (w *PGWriter) Complete(ctx context.Context, run Run, rows []extractions.Extraction, summary documents.Summary, completedAt time.Time) (err error) {
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = documents.CompleteRun(ctx, tx, run.DocumentID, run.StartedAt, completedAt, summary); err != nil {
		return mapStale(err)
	}
	if !w.KeepHistory {
		if _, err = extractions.DeleteByDocument(ctx, tx, run.DocumentID); err != nil {
			return fmt.Errorf("purge previous extractions: %w", err)
		}
	}
	if err = extractions.InsertRows(ctx, tx, rows); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *PGWriter) Fail(ctx context.Context, run Run, message string, completedAt time.Time) error {
	return mapStale(documents.FailRun(ctx, w.DB, run.DocumentID, run.StartedAt, completedAt, message))
}

// MemoryWriter commits runs against the in-memory repositories. Rows are written while
// the document repo holds its lock, so the guard and the write are one step.
type MemoryWriter struct {
	Docs        *documents.MemoryRepo
	Extractions *extractions.MemoryRepo
	KeepHistory bool
}

func (w *MemoryWriter) Complete(ctx context.Context, run Run, rows []extractions.Extraction, summary documents.Summary, completedAt time.Time) error {
	return mapStale(w.Docs.FinishRun(ctx, run.DocumentID, run.StartedAt, func(doc *documents.Document) error {
		var err error
		if w.KeepHistory {
			err = w.Extractions.Append(ctx, run.DocumentID, rows)
		} else {
			err = w.Extractions.Replace(ctx, run.DocumentID, rows)
		}
		if err != nil {
			return err
		}
		doc.Status = documents.StatusCompleted
		doc.CompletedAt = &completedAt
		doc.Summary = &summary
		doc.Error = nil
		return nil
	}))
}

func (w *MemoryWriter) Fail(ctx context.Context, run Run, message string, completedAt time.Time) error {
	return mapStale(w.Docs.FinishRun(ctx, run.DocumentID, run.StartedAt, func(doc *documents.Document) error {
		doc.Status = documents.StatusFailed
		doc.CompletedAt = &completedAt
		doc.Error = &message
		return nil
	}))
}

func mapStale(err error) error {
	if errors.Is(err, documents.ErrStaleRun) {
		return ErrSuperseded
	}
	return err
}
