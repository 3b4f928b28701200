package extractions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Extractions"

// ExportXLSX renders rows as a workbook: one overview sheet plus one sheet per table.
func ExportXLSX(rows []Extraction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	headers := []string{"ID", "Type", "Confidence", "Created At", "Data"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, h)
	}

	tables := 0
	for i, row := range rows {
		r := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
		data, err := json.Marshal(row.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal extraction %s: %w", row.ID, err)
		}
		write(1, row.ID)
		write(2, string(row.Type))
		if row.ConfidenceScore != nil {
			write(3, *row.ConfidenceScore)
		}
		write(4, row.CreatedAt.UTC().Format(time.RFC3339))
		write(5, string(data))

		if t, ok := row.Data.(TableData); ok {
			tables++
			if err := writeTableSheet(f, fmt.Sprintf("Table %d", tables), t); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 38)
	_ = f.SetColWidth(summarySheet, "B", "C", 12)
	_ = f.SetColWidth(summarySheet, "D", "D", 22)
	_ = f.SetColWidth(summarySheet, "E", "E", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTableSheet(f *excelize.File, name string, t TableData) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	all := append([][]string{t.Headers}, t.Rows...)
	for r, cells := range all {
		for c, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
