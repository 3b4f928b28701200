package extractions

import "time"

// Item is one extraction as exposed by listings.
type Item struct {
	ID              string    `json:"id"`
	Data            Payload   `json:"data"`
	ConfidenceScore *float64  `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Group buckets rows by type, keeping their order inside each bucket.
func Group(rows []Extraction) map[Type][]Item {
	out := make(map[Type][]Item)
	for _, row := range rows {
		out[row.Type] = append(out[row.Type], Item{
			ID:              row.ID,
			Data:            row.Data,
			ConfidenceScore: row.ConfidenceScore,
			CreatedAt:       row.CreatedAt,
		})
	}
	return out
}

// IDs returns the ids of rows in order.
func IDs(rows []Extraction) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}
