package documents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docextract-backend/internal/shared/storage/object"
	"docextract-backend/internal/shared/telemetry"
	"docextract-backend/internal/shared/util"
)

const pdfContentType = "application/pdf"

// DefaultMaxBytes is the upload ceiling when none is configured.
const DefaultMaxBytes int64 = 50_000_000

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            Repo
	StorageProvider string
	MaxBytes        int64
	// Cascade removes rows owned by a document when the store has no FK cascade.
	Cascade func(ctx context.Context, documentID string) error
	Now     func() time.Time
}

type UploadInput struct {
	UserID      string
	FileName    string
	Title       string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload validates a PDF, stores it under a fresh name and records a pending document.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if in.UserID == "" || strings.TrimSpace(in.FileName) == "" || in.Body == nil {
		return Document{}, ErrInvalidInput
	}
	if mediaType, _, err := mime.ParseMediaType(in.ContentType); err != nil || mediaType != pdfContentType {
		return Document{}, ErrUnsupportedType
	}
	ceiling := s.maxBytes()
	if in.Size > ceiling {
		return Document{}, ErrTooLarge
	}

	br := bufio.NewReaderSize(in.Body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if http.DetectContentType(head) != pdfContentType {
		return Document{}, ErrUnsupportedType
	}

	id := uuid.NewString()
	stored := id + util.FileSuffix(in.FileName)
	key, size, _, err := s.Store.Save(ctx, in.UserID, stored, io.LimitReader(br, ceiling+1))
	if err != nil {
		return Document{}, err
	}
	if size > ceiling {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			telemetry.Warn("documents.oversize_cleanup_failed", map[string]any{"storage_key": key, "error": delErr.Error()})
		}
		return Document{}, ErrTooLarge
	}

	doc := Document{
		ID:              id,
		UserID:          in.UserID,
		FileName:        in.FileName,
		StoredFilename:  stored,
		StorageProvider: s.StorageProvider,
		StorageKey:      key,
		ContentType:     pdfContentType,
		SizeBytes:       size,
		Status:          StatusPending,
		CreatedAt:       Stamp(s.now()),
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		doc.Title = &title
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		_ = s.Store.Delete(ctx, key)
		return Document{}, err
	}
	telemetry.Info("documents.uploaded", map[string]any{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	if userID == "" || id == "" {
		return Document{}, ErrInvalidInput
	}
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// Delete removes the stored file, the document's extractions and the document itself.
// A file that is already gone is logged and skipped.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		if !errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("delete stored file: %w", err)
		}
		telemetry.Warn("documents.file_missing", map[string]any{"document_id": doc.ID, "storage_key": doc.StorageKey})
	}
	if s.Cascade != nil {
		if err := s.Cascade(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete extractions: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, userID, doc.ID); err != nil {
		return err
	}
	telemetry.Info("documents.deleted", map[string]any{"document_id": doc.ID, "user_id": userID})
	return nil
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return DefaultMaxBytes
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
