// Package analysis asks a language model to summarize a document's extractions.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/extractions"
	"docextract-backend/internal/llm"
	"docextract-backend/internal/shared/telemetry"
)

const (
	// PreviewLimit is the number of records shown in the preview table.
	PreviewLimit   = 20
	maxCellWidth   = 40
	defaultTimeout = 2 * time.Minute
)

var (
	// ErrNoExtractions means the document has nothing to analyze yet.
	ErrNoExtractions = errors.New("no extractions found for this document")
	// ErrLLM wraps failures from the language model.
	ErrLLM = errors.New("llm request failed")
)

const promptTemplate = `You are a data analyst. The records below were extracted from a PDF document.

Preview of the first %d records:
%s
All extracted data as JSON:
%s

Based on this data, provide:
1. Key insights
2. Anomalies or inconsistencies
3. Recommended next steps
`

// Service builds the analysis prompt from stored extractions and forwards it to the LLM.
type Service struct {
	Docs        documents.Repo
	Extractions extractions.Repo
	LLM         llm.Client
	Timeout     time.Duration
}

// Analyze returns the model's reply verbatim.
func (s *Service) Analyze(ctx context.Context, userID, documentID string) (string, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return "", documents.ErrNotFound
	}
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	rows, err := s.Extractions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", ErrNoExtractions
	}

	prompt, err := BuildPrompt(rows)
	if err != nil {
		return "", err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := s.LLM.Complete(ctx, prompt)
	if err != nil {
		telemetry.Error("analysis.llm_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
		return "", fmt.Errorf("%w: %w", ErrLLM, err)
	}
	telemetry.Info("analysis.completed", map[string]any{"document_id": doc.ID, "extractions": len(rows)})
	return reply, nil
}

// BuildPrompt renders rows as a preview table plus a JSON projection and embeds both
// in the analysis prompt.
func BuildPrompt(rows []extractions.Extraction) (string, error) {
	records, err := decodeRecords(rows)
	if err != nil {
		return "", err
	}
	projection, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, PreviewLimit, Preview(records, PreviewLimit), projection), nil
}

// decodeRecords decodes every row's data into a generic object.
func decodeRecords(rows []extractions.Extraction) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		raw, err := extractions.Encode(row.Data)
		if err != nil {
			return nil, fmt.Errorf("encode extraction %s: %w", row.ID, err)
		}
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode extraction %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Preview renders up to limit records as an aligned text table. Columns are the union of
// the records' keys; absent values render empty.
func Preview(records []map[string]any, limit int) string {
	if len(records) > limit {
		records = records[:limit]
	}
	keySet := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(append([]string{"#"}, keys...), "\t"))
	for i, rec := range records {
		cells := make([]string, 0, len(keys)+1)
		cells = append(cells, fmt.Sprint(i))
		for _, k := range keys {
			cells = append(cells, cell(rec[k]))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	return buf.String()
}

func cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case float64, bool:
		s = fmt.Sprint(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		s = string(raw)
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-3]) + "..."
	}
	return s
}
