package extractions

import (
	"context"
	"database/sql"
)

// Repo reads persisted extractions. Writes go through the pipeline's result commit.
type Repo interface {
	ListByDocument(ctx context.Context, documentID string) ([]Extraction, error)
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
