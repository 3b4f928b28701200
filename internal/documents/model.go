package documents

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("Only PDF files are allowed")
	ErrTooLarge        = errors.New("file too large")
	// ErrStaleRun means the document is no longer in the extraction run being finished.
	ErrStaleRun = errors.New("extraction run no longer current")
)

// Status is the extraction lifecycle state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Summary describes the latest successful extraction run.
type Summary struct {
	TablesFound         int       `json:"tables_found"`
	StatisticsFound     int       `json:"statistics_found"`
	OCRUsed             bool      `json:"ocr_used"`
	AdvancedFeatures    bool      `json:"advanced_features"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	TotalExtractions    int       `json:"total_extractions"`
}

// Document is an uploaded PDF and the state of its extraction.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	StoredFilename  string
	Title           *string
	StorageProvider string
	StorageKey      string
	ContentType     string
	SizeBytes       int64
	Status          Status
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Error           *string
	Summary         *Summary
	CreatedAt       time.Time
}

// Stamp returns t in UTC truncated to the precision Postgres keeps.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
