package extractions

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo reads extractions from Postgres.
type PGRepo struct {
	DB *sql.DB
}

// ListByDocument returns a document's rows ordered by (created_at, position).
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Extraction, error) {
	const query = `
SELECT id, document_id, extraction_type, confidence_score, data, embedding_id, position, created_at
FROM extractions
WHERE document_id = $1
ORDER BY created_at ASC, position ASC`

	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Extraction{}
	for rows.Next() {
		var ex Extraction
		var typ string
		var confidence sql.NullFloat64
		var data []byte
		var embeddingID sql.NullString
		if err := rows.Scan(
			&ex.ID,
			&ex.DocumentID,
			&typ,
			&confidence,
			&data,
			&embeddingID,
			&ex.Position,
			&ex.CreatedAt,
		); err != nil {
			return nil, err
		}
		ex.Type, err = ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("extraction %s: %w", ex.ID, err)
		}
		if ex.Data, err = Decode(ex.Type, data); err != nil {
			return nil, fmt.Errorf("extraction %s: %w", ex.ID, err)
		}
		if confidence.Valid {
			v := confidence.Float64
			ex.ConfidenceScore = &v
		}
		if embeddingID.Valid {
			v := embeddingID.String
			ex.EmbeddingID = &v
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// InsertRows writes rows through ex, typically a transaction.
func InsertRows(ctx context.Context, ex Execer, rows []Extraction) error {
	const query = `
INSERT INTO extractions (id, document_id, extraction_type, confidence_score, data, embedding_id, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, row := range rows {
		if !row.Type.Valid() {
			return ErrInvalidType
		}
		if row.Data == nil || row.Data.Type() != row.Type {
			return fmt.Errorf("%w: payload does not match type %s", ErrInvalidPayload, row.Type)
		}
		data, err := Encode(row.Data)
		if err != nil {
			return err
		}
		var confidence sql.NullFloat64
		if row.ConfidenceScore != nil {
			confidence = sql.NullFloat64{Float64: *row.ConfidenceScore, Valid: true}
		}
		var embeddingID sql.NullString
		if row.EmbeddingID != nil {
			embeddingID = sql.NullString{String: *row.EmbeddingID, Valid: true}
		}
		if _, err := ex.ExecContext(ctx, query,
			row.ID,
			row.DocumentID,
			string(row.Type),
			confidence,
			data,
			embeddingID,
			row.Position,
			row.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert extraction %d: %w", row.Position, err)
		}
	}
	return nil
}

// DeleteByDocument removes a document's rows through ex.
func DeleteByDocument(ctx context.Context, ex Execer, documentID string) (int64, error) {
	res, err := ex.ExecContext(ctx, `DELETE FROM extractions WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

var _ Repo = (*PGRepo)(nil)
