package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	StatisticPercentage = "percentage"
	StatisticNumber     = "number"

	patternMethod = "regex_pattern"
)

var (
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	numberPattern  = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\b`)
)

type StatisticMetadata struct {
	ConfidenceScore  float64 `json:"confidence_score"`
	ExtractionMethod string  `json:"extraction_method"`
	OCRUsed          bool    `json:"ocr_used"`
	PageNumber       int     `json:"page_number"`
}

// Statistic is a numeric value found in page text. Unit is nil for plain numbers.
type Statistic struct {
	Type        string            `json:"statistic_type"`
	Value       float64           `json:"statistic_value"`
	Unit        *string           `json:"statistic_unit"`
	Label       string            `json:"statistic_label"`
	ContextText string            `json:"context_text"`
	Metadata    StatisticMetadata `json:"extraction_metadata"`
}

// detectStatistics emits every percentage on the page followed by every number above
// NumberThreshold, each in text order. Numbers inside percentages are matched again by
// the number pattern and kept when they clear the threshold.
func detectStatistics(page Page, ocrUsed bool, s StatisticSettings) []Statistic {
	text := page.Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	context := truncateContext(text, s.ContextLength)

	var stats []Statistic
	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := "%"
		stats = append(stats, Statistic{
			Type:        StatisticPercentage,
			Value:       value,
			Unit:        &unit,
			Label:       "Extracted percentage",
			ContextText: context,
			Metadata:    statMeta(s.PercentageConfidence, ocrUsed, page.Number),
		})
	}
	for _, m := range numberPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || value <= s.NumberThreshold {
			continue
		}
		stats = append(stats, Statistic{
			Type:        StatisticNumber,
			Value:       value,
			Label:       "Extracted number",
			ContextText: context,
			Metadata:    statMeta(s.NumberConfidence, ocrUsed, page.Number),
		})
	}
	return stats
}

func statMeta(confidence float64, ocrUsed bool, page int) StatisticMetadata {
	return StatisticMetadata{
		ConfidenceScore:  confidence,
		ExtractionMethod: patternMethod,
		OCRUsed:          ocrUsed,
		PageNumber:       page,
	}
}

func truncateContext(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
