package extract

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Settings holds the engine's tunable constants. Confidence values are fixed per
// method; they are not derived from signal quality.
type Settings struct {
	Tables     TableSettings     `toml:"tables"`
	Statistics StatisticSettings `toml:"statistics"`
}

type TableSettings struct {
	Confidence      float64 `toml:"confidence"`
	MinRows         int     `toml:"min_rows"`
	ColumnTolerance float64 `toml:"column_tolerance"`
	CellGap         float64 `toml:"cell_gap"`
	CharWidth       float64 `toml:"char_width"`
}

type StatisticSettings struct {
	PercentageConfidence float64 `toml:"percentage_confidence"`
	NumberConfidence     float64 `toml:"number_confidence"`
	NumberThreshold      float64 `toml:"number_threshold"`
	ContextLength        int     `toml:"context_length"`
}

// DefaultSettings returns the stock extraction constants.
func DefaultSettings() Settings {
	return Settings{
		Tables: TableSettings{
			Confidence:      0.9,
			MinRows:         2,
			ColumnTolerance: 6,
			CellGap:         8,
			CharWidth:       5,
		},
		Statistics: StatisticSettings{
			PercentageConfidence: 0.8,
			NumberConfidence:     0.7,
			NumberThreshold:      100,
			ContextLength:        200,
		},
	}
}

// LoadSettings overlays a TOML file on DefaultSettings. An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Settings{}, fmt.Errorf("decode extract settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("extract settings %s: %w", path, err)
	}
	return s, nil
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"tables.confidence":                s.Tables.Confidence,
		"statistics.percentage_confidence": s.Statistics.PercentageConfidence,
		"statistics.number_confidence":     s.Statistics.NumberConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if s.Tables.MinRows < 1 {
		return fmt.Errorf("tables.min_rows must be at least 1, got %d", s.Tables.MinRows)
	}
	if s.Tables.CharWidth <= 0 || s.Tables.CellGap < 0 || s.Tables.ColumnTolerance < 0 {
		return fmt.Errorf("tables layout tolerances must be positive")
	}
	if s.Statistics.ContextLength < 0 {
		return fmt.Errorf("statistics.context_length must not be negative")
	}
	return nil
}
