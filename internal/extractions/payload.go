package extractions

import (
	"encoding/json"
	"fmt"

	"docextract-backend/internal/extract"
)

// Payload is the typed data carried by an Extraction. Each Type has exactly one shape.
type Payload interface {
	Type() Type
}

// TableData is the persisted shape of a table extraction.
type TableData struct {
	TableIndex int `json:"table_index"`
	extract.Table
}

func (TableData) Type() Type { return TypeTable }

// StatisticData is the persisted shape of a statistic extraction.
type StatisticData struct {
	StatisticIndex int `json:"statistic_index"`
	extract.Statistic
}

func (StatisticData) Type() Type { return TypeStatistic }

// RawData carries the reserved types the engine never produces.
type RawData struct {
	Kind   Type
	Fields json.RawMessage
}

func (r RawData) Type() Type { return r.Kind }

func (r RawData) MarshalJSON() ([]byte, error) {
	if len(r.Fields) == 0 {
		return []byte("{}"), nil
	}
	return r.Fields, nil
}

// Encode serializes p and checks it against the schema of its type.
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if !p.Type().Valid() {
		return nil, ErrInvalidType
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := Validate(p.Type(), raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Decode validates raw against the schema of t and returns the matching variant.
func Decode(t Type, raw []byte) (Payload, error) {
	if err := Validate(t, raw); err != nil {
		return nil, err
	}
	switch t {
	case TypeTable:
		var d TableData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return d, nil
	case TypeStatistic:
		var d StatisticData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return d, nil
	default:
		return RawData{Kind: t, Fields: append(json.RawMessage(nil), raw...)}, nil
	}
}

// FromTable wraps an engine table with its run-wide index.
func FromTable(index int, t extract.Table) TableData {
	return TableData{TableIndex: index, Table: t}
}

// FromStatistic wraps an engine statistic with its run-wide index.
func FromStatistic(index int, s extract.Statistic) StatisticData {
	return StatisticData{StatisticIndex: index, Statistic: s}
}
