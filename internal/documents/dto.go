package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID                    string     `json:"id"`
	Filename              string     `json:"filename"`
	StoredFilename        string     `json:"stored_filename"`
	Title                 *string    `json:"title"`
	UserID                string     `json:"user_id"`
	ContentType           string     `json:"content_type"`
	SizeBytes             int64      `json:"size_bytes"`
	ExtractionStatus      Status     `json:"extraction_status"`
	ExtractionStartedAt   *time.Time `json:"extraction_started_at"`
	ExtractionCompletedAt *time.Time `json:"extraction_completed_at"`
	ExtractionError       *string    `json:"extraction_error"`
	ExtractionSummary     *Summary   `json:"extraction_summary"`
	CreatedAt             time.Time  `json:"created_at"`
}

func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:                    doc.ID,
		Filename:              doc.FileName,
		StoredFilename:        doc.StoredFilename,
		Title:                 doc.Title,
		UserID:                doc.UserID,
		ContentType:           doc.ContentType,
		SizeBytes:             doc.SizeBytes,
		ExtractionStatus:      doc.Status,
		ExtractionStartedAt:   doc.StartedAt,
		ExtractionCompletedAt: doc.CompletedAt,
		ExtractionError:       doc.Error,
		ExtractionSummary:     doc.Summary,
		CreatedAt:             doc.CreatedAt,
	}
}
