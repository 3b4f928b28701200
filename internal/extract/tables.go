package extract

import (
	"fmt"
	"unicode/utf8"
)

type TableMetadata struct {
	ConfidenceScore  float64 `json:"confidence_score"`
	ExtractionMethod string  `json:"extraction_method"`
	OCRUsed          bool    `json:"ocr_used"`
	PageNumber       int     `json:"page_number"`
	TableIndex       int     `json:"table_index"`
}

// Table is a grid recovered from aligned text. Headers is the first row; RowCount
// includes it.
type Table struct {
	Headers     []string      `json:"headers"`
	Rows        [][]string    `json:"rows"`
	Title       string        `json:"table_title"`
	RowCount    int           `json:"row_count"`
	ColumnCount int           `json:"column_count"`
	Metadata    TableMetadata `json:"extraction_metadata"`
}

const layoutMethod = "pdf_layout"

type cell struct {
	x0, x1 float64
	text   string
}

// cells merges spans separated by less than CellGap into one cell. Span widths are
// estimated from rune count because the parser does not report glyph widths.
func (s TableSettings) cells(line Line) []cell {
	var out []cell
	for _, span := range line.Spans {
		width := float64(utf8.RuneCountInString(span.Text)) * s.CharWidth
		if n := len(out); n > 0 && span.X-out[n-1].x1 < s.CellGap {
			out[n-1].text += " " + span.Text
			if end := span.X + width; end > out[n-1].x1 {
				out[n-1].x1 = end
			}
			continue
		}
		out = append(out, cell{x0: span.X, x1: span.X + width, text: span.Text})
	}
	return out
}

// align places each cell under an overlapping anchor column. It reports false when a
// cell fits no unused column.
func (s TableSettings) align(anchors []cell, cells []cell) ([]string, bool) {
	row := make([]string, len(anchors))
	used := make([]bool, len(anchors))
	for _, c := range cells {
		placed := false
		for j, a := range anchors {
			if used[j] || c.x0 > a.x1+s.ColumnTolerance || a.x0 > c.x1+s.ColumnTolerance {
				continue
			}
			row[j], used[j], placed = c.text, true, true
			break
		}
		if !placed {
			return nil, false
		}
	}
	return row, true
}

type region struct {
	anchors []cell
	rows    [][]string
}

func (r *region) widen(cells []cell, s TableSettings) {
	for _, c := range cells {
		for j := range r.anchors {
			a := &r.anchors[j]
			if c.x0 > a.x1+s.ColumnTolerance || a.x0 > c.x1+s.ColumnTolerance {
				continue
			}
			a.x0 = min(a.x0, c.x0)
			a.x1 = max(a.x1, c.x1)
			break
		}
	}
}

// detectTables finds runs of consecutive lines whose cells share column positions.
func detectTables(page Page, ocrUsed bool, s TableSettings) []Table {
	var tables []Table
	var cur *region

	flush := func() {
		if cur != nil && len(cur.rows) >= s.MinRows {
			index := len(tables)
			tables = append(tables, Table{
				Headers:     cur.rows[0],
				Rows:        cur.rows[1:],
				Title:       fmt.Sprintf("Table on page %d", page.Number),
				RowCount:    len(cur.rows),
				ColumnCount: len(cur.rows[0]),
				Metadata: TableMetadata{
					ConfidenceScore:  s.Confidence,
					ExtractionMethod: layoutMethod,
					OCRUsed:          ocrUsed,
					PageNumber:       page.Number,
					TableIndex:       index,
				},
			})
		}
		cur = nil
	}

	for _, line := range page.Lines {
		cells := s.cells(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if cur != nil {
			if row, ok := s.align(cur.anchors, cells); ok {
				cur.rows = append(cur.rows, row)
				cur.widen(cells, s)
				continue
			}
			flush()
		}
		header := make([]string, len(cells))
		for i, c := range cells {
			header[i] = c.text
		}
		cur = &region{anchors: cells, rows: [][]string{header}}
	}
	flush()
	return tables
}
