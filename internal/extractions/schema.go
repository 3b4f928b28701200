package extractions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const tableSchema = `{
  "type": "object",
  "required": ["table_index", "table_title", "headers", "rows", "row_count", "column_count", "extraction_metadata"],
  "properties": {
    "table_index": {"type": "integer", "minimum": 0},
    "table_title": {"type": "string"},
    "headers": {"type": "array", "items": {"type": "string"}},
    "rows": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}},
    "row_count": {"type": "integer", "minimum": 0},
    "column_count": {"type": "integer", "minimum": 0},
    "extraction_metadata": {
      "type": "object",
      "required": ["confidence_score", "extraction_method", "ocr_used", "page_number", "table_index"],
      "properties": {
        "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
        "extraction_method": {"type": "string", "minLength": 1},
        "ocr_used": {"type": "boolean"},
        "page_number": {"type": "integer", "minimum": 1},
        "table_index": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

const statisticSchema = `{
  "type": "object",
  "required": ["statistic_index", "statistic_type", "statistic_value", "statistic_unit", "statistic_label", "context_text", "extraction_metadata"],
  "properties": {
    "statistic_index": {"type": "integer", "minimum": 0},
    "statistic_type": {"enum": ["percentage", "number"]},
    "statistic_value": {"type": "number"},
    "statistic_unit": {"type": ["string", "null"]},
    "statistic_label": {"type": "string"},
    "context_text": {"type": "string"},
    "extraction_metadata": {
      "type": "object",
      "required": ["confidence_score", "extraction_method", "ocr_used", "page_number"],
      "properties": {
        "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
        "extraction_method": {"type": "string", "minLength": 1},
        "ocr_used": {"type": "boolean"},
        "page_number": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

const objectSchema = `{"type": "object"}`

var schemas = map[Type]*jsonschema.Schema{
	TypeTable:     mustCompile("table.json", tableSchema),
	TypeStatistic: mustCompile("statistic.json", statisticSchema),
	TypeDiagram:   mustCompile("diagram.json", objectSchema),
	TypeText:      mustCompile("text.json", objectSchema),
	TypeOther:     mustCompile("other.json", objectSchema),
}

func mustCompile(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(schema))); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// Validate checks that raw is non-null JSON matching the shape of t.
func Validate(t Type, raw []byte) error {
	schema, ok := schemas[t]
	if !ok {
		return ErrInvalidType
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if v == nil {
		return fmt.Errorf("%w: data must not be null", ErrInvalidPayload)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", ErrInvalidPayload, t, err)
	}
	return nil
}
