package extractions

import (
	"time"

	"docextract-backend/internal/extract"
)

func sampleTable() TableData {
	return FromTable(0, extract.Table{
		Headers:     []string{"Region", "Share"},
		Rows:        [][]string{{"North", "60%"}},
		Title:       "Table on page 1",
		RowCount:    2,
		ColumnCount: 2,
		Metadata: extract.TableMetadata{
			ConfidenceScore:  0.9,
			ExtractionMethod: "pdf_layout",
			PageNumber:       1,
		},
	})
}

func sampleStatistic() StatisticData {
	unit := "%"
	return FromStatistic(1, extract.Statistic{
		Type:        extract.StatisticPercentage,
		Value:       42.5,
		Unit:        &unit,
		Label:       "Extracted percentage",
		ContextText: "Revenue grew 42.5%",
		Metadata: extract.StatisticMetadata{
			ConfidenceScore:  0.8,
			ExtractionMethod: "regex_pattern",
			PageNumber:       1,
		},
	})
}

func sampleRows(docID string) []Extraction {
	conf := func(v float64) *float64 { return &v }
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Extraction{
		{ID: "ex-1", DocumentID: docID, Type: TypeTable, ConfidenceScore: conf(0.9), Data: sampleTable(), Position: 0, CreatedAt: now},
		{ID: "ex-2", DocumentID: docID, Type: TypeStatistic, ConfidenceScore: conf(0.8), Data: sampleStatistic(), Position: 1, CreatedAt: now},
	}
}
