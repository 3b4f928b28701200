package pipeline

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/extract"
	"docextract-backend/internal/extractions"
)

const (
	defaultTableConfidence     = 0.9
	defaultStatisticConfidence = 0.8
	maxErrorLen                = 500
)

// BuildRows turns an engine payload into extraction rows: tables first, then statistics,
// each in engine order.
func BuildRows(documentID string, res *extract.Result, createdAt time.Time) []extractions.Extraction {
	rows := make([]extractions.Extraction, 0, len(res.Tables)+len(res.Statistics))
	for i, t := range res.Tables {
		rows = append(rows, extractions.Extraction{
			ID:              uuid.NewString(),
			DocumentID:      documentID,
			Type:            extractions.TypeTable,
			ConfidenceScore: confidence(t.Metadata.ConfidenceScore, defaultTableConfidence),
			Data:            extractions.FromTable(i, t),
			Position:        len(rows),
			CreatedAt:       createdAt,
		})
	}
	for i, s := range res.Statistics {
		rows = append(rows, extractions.Extraction{
			ID:              uuid.NewString(),
			DocumentID:      documentID,
			Type:            extractions.TypeStatistic,
			ConfidenceScore: confidence(s.Metadata.ConfidenceScore, defaultStatisticConfidence),
			Data:            extractions.FromStatistic(i, s),
			Position:        len(rows),
			CreatedAt:       createdAt,
		})
	}
	return rows
}

func confidence(v, fallback float64) *float64 {
	if v <= 0 {
		v = fallback
	}
	return &v
}

func buildSummary(res *extract.Result, rows int, at time.Time) documents.Summary {
	return documents.Summary{
		TablesFound:         len(res.Tables),
		StatisticsFound:     len(res.Statistics),
		OCRUsed:             res.OCRUsed,
		AdvancedFeatures:    res.AdvancedFeatures,
		ExtractionTimestamp: at,
		TotalExtractions:    rows,
	}
}

// sanitizeError flattens err for storage on the document.
func sanitizeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if msg == "" {
		msg = "unknown error"
	}
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
		for !utf8.ValidString(msg) {
			msg = msg[:len(msg)-1]
		}
	}
	return msg
}
