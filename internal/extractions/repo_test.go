package extractions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMemoryRepoAppendReplaceDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	rows := sampleRows("doc-1")

	if err := repo.Append(ctx, "doc-1", rows); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.Append(ctx, "doc-1", rows[:1]); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ := repo.ListByDocument(ctx, "doc-1")
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}

	if err := repo.Replace(ctx, "doc-1", rows[1:]); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ = repo.ListByDocument(ctx, "doc-1")
	if len(got) != 1 || got[0].ID != "ex-2" {
		t.Fatalf("unexpected rows after replace: %+v", got)
	}

	n, err := repo.DeleteByDocument(ctx, "doc-1")
	if err != nil || n != 1 {
		t.Fatalf("DeleteByDocument = %d, %v", n, err)
	}
	got, _ = repo.ListByDocument(ctx, "doc-1")
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

func TestInsertRowsWritesEachRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rows := sampleRows("doc-1")
	for _, row := range rows {
		mock.ExpectExec("INSERT INTO extractions").
			WithArgs(row.ID, "doc-1", string(row.Type), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, row.Position, row.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	if err := InsertRows(context.Background(), db, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestInsertRowsRejectsMismatchedPayload(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	bad := sampleRows("doc-1")[:1]
	bad[0].Type = TypeStatistic
	if err := InsertRows(context.Background(), db, bad); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestPGRepoListByDocumentDecodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, document_id, extraction_type").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "extraction_type", "confidence_score", "data", "embedding_id", "position", "created_at"}).
			AddRow("ex-1", "doc-1", "table", 0.9, []byte(mustEncode(t, sampleTable())), nil, 0, created).
			AddRow("ex-2", "doc-1", "statistic", nil, []byte(mustEncode(t, sampleStatistic())), "emb-7", 1, created))

	repo := &PGRepo{DB: db}
	got, err := repo.ListByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if _, ok := got[0].Data.(TableData); !ok {
		t.Fatalf("expected TableData, got %T", got[0].Data)
	}
	if got[0].ConfidenceScore == nil || *got[0].ConfidenceScore != 0.9 {
		t.Fatalf("unexpected confidence: %v", got[0].ConfidenceScore)
	}
	if got[1].ConfidenceScore != nil {
		t.Fatalf("expected nil confidence, got %v", *got[1].ConfidenceScore)
	}
	if got[1].EmbeddingID == nil || *got[1].EmbeddingID != "emb-7" {
		t.Fatalf("unexpected embedding id: %v", got[1].EmbeddingID)
	}
}

func TestPGRepoListRejectsCorruptRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, document_id, extraction_type").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "extraction_type", "confidence_score", "data", "embedding_id", "position", "created_at"}).
			AddRow("ex-1", "doc-1", "table", 0.9, []byte(`{"headers":"nope"}`), nil, 0, time.Now()))

	_, err = (&PGRepo{DB: db}).ListByDocument(context.Background(), "doc-1")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
