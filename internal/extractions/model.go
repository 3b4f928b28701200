package extractions

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("extractions not found")
	ErrInvalidType    = errors.New("invalid extraction type")
	ErrInvalidPayload = errors.New("invalid extraction payload")
)

// Type is the closed set of extraction kinds accepted by storage.
type Type string

const (
	TypeTable     Type = "table"
	TypeDiagram   Type = "diagram"
	TypeStatistic Type = "statistic"
	TypeText      Type = "text"
	TypeOther     Type = "other"
)

var allTypes = []Type{TypeTable, TypeDiagram, TypeStatistic, TypeText, TypeOther}

func (t Type) Valid() bool {
	for _, v := range allTypes {
		if t == v {
			return true
		}
	}
	return false
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Extraction is one structured fact derived from a document. Rows are immutable once written.
type Extraction struct {
	ID              string
	DocumentID      string
	Type            Type
	ConfidenceScore *float64
	Data            Payload
	EmbeddingID     *string
	Position        int
	CreatedAt       time.Time
}
