package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPage(number int, lines ...string) Page {
	p := Page{Number: number}
	for i, l := range lines {
		p.Lines = append(p.Lines, line(float64(700-20*i), Span{X: 72, Text: l}))
	}
	return p
}

func TestDetectStatisticsOrderAndValues(t *testing.T) {
	page := textPage(3, "Growth hit 42.5% while 87 stores sold 1,250 units", "Margin 12 %")

	stats := detectStatistics(page, false, DefaultSettings().Statistics)

	require.Len(t, stats, 3)
	assert.Equal(t, StatisticPercentage, stats[0].Type)
	assert.Equal(t, 42.5, stats[0].Value)
	require.NotNil(t, stats[0].Unit)
	assert.Equal(t, "%", *stats[0].Unit)
	assert.Equal(t, "Extracted percentage", stats[0].Label)
	assert.Equal(t, 0.8, stats[0].Metadata.ConfidenceScore)
	assert.Equal(t, "regex_pattern", stats[0].Metadata.ExtractionMethod)
	assert.Equal(t, 3, stats[0].Metadata.PageNumber)

	assert.Equal(t, StatisticPercentage, stats[1].Type)
	assert.Equal(t, 12.0, stats[1].Value)

	assert.Equal(t, StatisticNumber, stats[2].Type)
	assert.Equal(t, 1250.0, stats[2].Value)
	assert.Nil(t, stats[2].Unit)
	assert.Equal(t, "Extracted number", stats[2].Label)
	assert.Equal(t, 0.7, stats[2].Metadata.ConfidenceScore)
	assert.Equal(t, page.Text(), stats[2].ContextText)
}

func TestDetectStatisticsContextTruncated(t *testing.T) {
	long := strings.Repeat("x", 250) + " 150"
	stats := detectStatistics(textPage(1, long), true, DefaultSettings().Statistics)

	require.Len(t, stats, 1)
	assert.Equal(t, strings.Repeat("x", 200)+"...", stats[0].ContextText)
	assert.True(t, stats[0].Metadata.OCRUsed)
}

func TestDetectStatisticsEmptyPage(t *testing.T) {
	assert.Empty(t, detectStatistics(Page{Number: 1}, false, DefaultSettings().Statistics))
	assert.Empty(t, detectStatistics(textPage(1, "no numbers here, only 99 and 2024"), false, DefaultSettings().Statistics))
}
