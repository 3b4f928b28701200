package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectColumns = `
SELECT id, user_id, filename, stored_filename, title, storage_provider, storage_key, content_type, size_bytes,
       extraction_status, extraction_started_at, extraction_completed_at, extraction_error, extraction_summary, created_at
FROM documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var doc Document
	var status string
	var title, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	var summary []byte
	if err := s.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.StoredFilename,
		&title,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.ContentType,
		&doc.SizeBytes,
		&status,
		&startedAt,
		&completedAt,
		&errMsg,
		&summary,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if title.Valid {
		doc.Title = &title.String
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		doc.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		doc.CompletedAt = &t
	}
	if errMsg.Valid {
		doc.Error = &errMsg.String
	}
	if len(summary) > 0 {
		var s Summary
		if err := json.Unmarshal(summary, &s); err != nil {
			return Document{}, fmt.Errorf("decode summary for %s: %w", doc.ID, err)
		}
		doc.Summary = &s
	}
	return doc, nil
}

// Create inserts a new document in the pending state.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    filename,
    stored_filename,
    title,
    storage_provider,
    storage_key,
    content_type,
    size_bytes,
    extraction_status,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10)`

	var title sql.NullString
	if doc.Title != nil {
		title = sql.NullString{String: *doc.Title, Valid: true}
	}
	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.StoredFilename,
		title,
		storageProvider,
		doc.StorageKey,
		doc.ContentType,
		doc.SizeBytes,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, selectColumns+`
WHERE user_id = $1 AND id = $2`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes the document row; extraction rows go with it through the FK cascade.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkProcessing starts a new run. The previous summary is kept until the run completes.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `
UPDATE documents
SET extraction_status = 'processing',
    extraction_started_at = $2,
    extraction_completed_at = NULL,
    extraction_error = NULL
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, startedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteRun marks the run stamped at startedAt completed. It returns ErrStaleRun when
// another run has taken over the document.
func CompleteRun(ctx context.Context, ex Execer, id string, startedAt, completedAt time.Time, summary Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	const query = `
UPDATE documents
SET extraction_status = 'completed',
    extraction_completed_at = $3,
    extraction_summary = $4,
    extraction_error = NULL
WHERE id = $1 AND extraction_status = 'processing' AND extraction_started_at = $2`
	return guarded(ex.ExecContext(ctx, query, id, startedAt, completedAt, raw))
}

// FailRun marks the run stamped at startedAt failed with message.
func FailRun(ctx context.Context, ex Execer, id string, startedAt, completedAt time.Time, message string) error {
	const query = `
UPDATE documents
SET extraction_status = 'failed',
    extraction_completed_at = $3,
    extraction_error = $4
WHERE id = $1 AND extraction_status = 'processing' AND extraction_started_at = $2`
	return guarded(ex.ExecContext(ctx, query, id, startedAt, completedAt, message))
}

func guarded(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleRun
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
