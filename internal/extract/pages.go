package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Span is one run of text drawn at a position on the page.
type Span struct {
	X    float64
	Y    float64
	Text string
}

// Line is a set of spans sharing a baseline, ordered left to right.
type Line struct {
	Y     float64
	Spans []Span
}

// Page is the parsed layout of one page. Err is set when the page could not be read;
// the remaining pages are still usable.
type Page struct {
	Number int
	Lines  []Line
	Err    error
}

// Text renders the page as plain text: lines top to bottom, spans joined by spaces.
func (p Page) Text() string {
	var b strings.Builder
	for i, line := range p.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, span := range line.Spans {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// PageSource loads the page layout of a PDF.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]Page, error)
}

// PDFPages reads text layout with github.com/ledongthuc/pdf.
type PDFPages struct{}

func (PDFPages) Pages(ctx context.Context, path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, readPage(r, i))
	}
	return pages, nil
}

func readPage(r *pdf.Reader, number int) (page Page) {
	page.Number = number
	defer func() {
		if rec := recover(); rec != nil {
			page.Lines = nil
			page.Err = fmt.Errorf("page %d: %v", number, rec)
		}
	}()

	p := r.Page(number)
	if p.V.IsNull() {
		page.Err = fmt.Errorf("page %d: missing page object", number)
		return page
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		page.Err = fmt.Errorf("page %d: %w", number, err)
		return page
	}
	page.Lines = linesFromRows(rows)
	return page
}

func linesFromRows(rows pdf.Rows) []Line {
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		var spans []Span
		for _, t := range row.Content {
			text := strings.TrimSpace(t.S)
			if text == "" {
				continue
			}
			spans = append(spans, Span{X: t.X, Y: t.Y, Text: text})
		}
		if len(spans) == 0 {
			continue
		}
		sort.SliceStable(spans, func(i, j int) bool { return spans[i].X < spans[j].X })
		lines = append(lines, Line{Y: float64(row.Position), Spans: spans})
	}
	return lines
}
