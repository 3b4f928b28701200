package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents. Terminal extraction transitions
// are written by the pipeline's result commit, not through this interface.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	GetByID(ctx context.Context, userID, id string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, userID, id string) error
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
}
