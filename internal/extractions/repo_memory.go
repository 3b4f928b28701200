package extractions

import (
	"context"
	"sync"
)

// MemoryRepo keeps extractions in process, keyed by document.
type MemoryRepo struct {
	mu    sync.RWMutex
	byDoc map[string][]Extraction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byDoc: make(map[string][]Extraction)}
}

// ListByDocument returns rows in insertion order, which is run order then position.
func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.byDoc[documentID]
	out := make([]Extraction, len(rows))
	copy(out, rows)
	return out, nil
}

// Append adds rows after any existing ones for the document.
func (r *MemoryRepo) Append(ctx context.Context, documentID string, rows []Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDoc[documentID] = append(r.byDoc[documentID], rows...)
	return nil
}

// Replace swaps the document's rows for rows.
func (r *MemoryRepo) Replace(ctx context.Context, documentID string, rows []Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDoc[documentID] = append([]Extraction(nil), rows...)
	return nil
}

// DeleteByDocument drops every row of the document and reports how many were removed.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byDoc[documentID])
	delete(r.byDoc, documentID)
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
