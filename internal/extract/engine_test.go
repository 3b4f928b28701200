package extract

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract-backend/internal/extract/extracttest"
	"docextract-backend/internal/ocr"
)

func reportPage() extracttest.Page {
	return extracttest.Page{
		{X: 72, Y: 700, S: "Revenue grew 42.5% to 1,250 units across 87 stores"},
		{X: 72, Y: 650, S: "Region"},
		{X: 200, Y: 650, S: "Share"},
		{X: 72, Y: 630, S: "North"},
		{X: 200, Y: 630, S: "60%"},
		{X: 72, Y: 610, S: "South"},
		{X: 200, Y: 610, S: "40%"},
	}
}

type fakeOCR struct {
	result ocr.Result
	calls  []ocr.Options
}

func (f *fakeOCR) Run(_ context.Context, _ string, opts ocr.Options) ocr.Result {
	f.calls = append(f.calls, opts)
	return f.result
}

type fakePages struct {
	pages []Page
	err   error
}

func (f fakePages) Pages(context.Context, string) ([]Page, error) { return f.pages, f.err }

func TestExtractAllFromPDF(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "report.pdf", reportPage())

	res, err := New(nil, DefaultSettings()).ExtractAll(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	assert.False(t, res.OCRUsed)
	assert.Equal(t, path, res.InputPDF)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "processed"), res.OutputDirectory)

	require.Len(t, res.Tables, 1)
	assert.Equal(t, []string{"Region", "Share"}, res.Tables[0].Headers)
	assert.Equal(t, [][]string{{"North", "60%"}, {"South", "40%"}}, res.Tables[0].Rows)
	assert.Equal(t, 1, res.Tables[0].Metadata.PageNumber)

	values := make([]float64, 0, len(res.Statistics))
	types := make([]string, 0, len(res.Statistics))
	for _, s := range res.Statistics {
		values = append(values, s.Value)
		types = append(types, s.Type)
	}
	assert.Equal(t, []float64{42.5, 60, 40, 1250}, values)
	assert.Equal(t, []string{"percentage", "percentage", "percentage", "number"}, types)
}

func TestExtractAllMultiplePages(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "two.pdf",
		extracttest.Page{{X: 72, Y: 700, S: "Cover page with 300 visitors"}},
		reportPage(),
	)

	res, err := New(nil, DefaultSettings()).ExtractAll(context.Background(), path, Options{})
	require.NoError(t, err)

	require.Len(t, res.Tables, 1)
	assert.Equal(t, 2, res.Tables[0].Metadata.PageNumber)
	require.NotEmpty(t, res.Statistics)
	assert.Equal(t, 300.0, res.Statistics[0].Value)
	assert.Equal(t, 1, res.Statistics[0].Metadata.PageNumber)
}

func TestExtractAllMissingFile(t *testing.T) {
	_, err := New(nil, DefaultSettings()).ExtractAll(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), Options{})
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestExtractAllOCRFailureDegrades(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "scan.pdf", reportPage())
	pre := &fakeOCR{result: ocr.Result{Status: ocr.StatusFailed, Err: errors.New("tesseract missing")}}

	res, err := New(pre, DefaultSettings()).ExtractAll(context.Background(), path, Options{UseOCR: true, ForceOCR: true})
	require.NoError(t, err)

	assert.Empty(t, res.Tables)
	assert.Empty(t, res.Statistics)
	assert.True(t, res.OCRUsed)
	assert.Equal(t, "failed", res.OCRStatus)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, StageOCR, res.Warnings[0].Stage)
	assert.Equal(t, []ocr.Options{{Force: true}}, pre.calls)
}

func TestExtractAllOCRSkippedReadsOriginal(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "digital.pdf", reportPage())
	pre := &fakeOCR{result: ocr.Result{Path: path, Status: ocr.StatusSkipped}}

	res, err := New(pre, DefaultSettings()).ExtractAll(context.Background(), path, Options{UseOCR: true, UseAdvanced: true})
	require.NoError(t, err)

	assert.Equal(t, "skipped", res.OCRStatus)
	assert.False(t, res.AdvancedFeatures)
	require.Len(t, res.Tables, 1)
	assert.True(t, res.Tables[0].Metadata.OCRUsed)
	assert.True(t, res.Statistics[0].Metadata.OCRUsed)
}

func TestExtractAllUnreadablePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	res, err := New(nil, DefaultSettings()).ExtractAll(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Tables)
	assert.Empty(t, res.Statistics)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, StageTables, res.Warnings[0].Stage)
	assert.Equal(t, StageStatistics, res.Warnings[1].Stage)
}

func TestExtractAllPageErrorsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	good := Page{Number: 2, Lines: []Line{line(700, Span{X: 72, Text: "Output rose to 500"})}}
	eng := &Engine{Pages: fakePages{pages: []Page{{Number: 1, Err: errors.New("bad font")}, good}}, Settings: DefaultSettings()}

	res, err := eng.ExtractAll(context.Background(), path, Options{})
	require.NoError(t, err)

	require.Len(t, res.Statistics, 1)
	assert.Equal(t, 500.0, res.Statistics[0].Value)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, 1, res.Warnings[0].Page)
}

func TestExtractAllCancelled(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "report.pdf", reportPage())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, DefaultSettings()).ExtractAll(ctx, path, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultJSONUsesEmptyLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	eng := &Engine{Pages: fakePages{}, Settings: DefaultSettings()}

	res, err := eng.ExtractAll(context.Background(), path, Options{})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tables":[]`)
	assert.Contains(t, string(raw), `"statistics":[]`)
	assert.NotContains(t, string(raw), `"warnings"`)
}
