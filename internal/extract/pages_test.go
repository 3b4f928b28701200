package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract-backend/internal/extract/extracttest"
)

func TestPDFPagesReadsRowsTopDown(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "rows.pdf", extracttest.Page{
		{X: 200, Y: 600, S: "right"},
		{X: 72, Y: 700, S: "top (line)"},
		{X: 72, Y: 600, S: "left"},
	})

	pages, err := PDFPages{}.Pages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.NoError(t, pages[0].Err)
	assert.Equal(t, "top (line)\nleft right", pages[0].Text())
	require.Len(t, pages[0].Lines, 2)
	assert.Equal(t, 72.0, pages[0].Lines[1].Spans[0].X)
}

func TestPDFPagesMissingFile(t *testing.T) {
	_, err := PDFPages{}.Pages(context.Background(), "/does/not/exist.pdf")
	assert.Error(t, err)
}
