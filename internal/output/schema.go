package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// reportSchema constrains the persisted report shape so that stale or
// hand-edited artefacts fail fast when read back.
const reportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["metadata", "summary", "items"],
  "properties": {
    "metadata": {
      "type": "object",
      "required": ["version", "generated_at"],
      "properties": {
        "version": {"const": "2.0"},
        "tool": {"type": "string"},
        "generated_at": {"type": "string"},
        "project_root": {"type": "string"},
        "has_coverage_data": {"type": "boolean"}
      }
    },
    "summary": {"type": "object"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "score", "category", "priority", "location"],
        "properties": {
          "type": {"enum": ["function", "file"]},
          "score": {"type": "number", "minimum": 0},
          "priority": {"enum": ["critical", "high", "medium", "low"]},
          "location": {
            "type": "object",
            "required": ["file"],
            "properties": {
              "file": {"type": "string"},
              "function": {"type": "string"},
              "line": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(reportSchema)))
	if err != nil {
		panic(fmt.Sprintf("output: invalid report schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("arrears://report-schema.json", doc); err != nil {
		panic(fmt.Sprintf("output: invalid report schema: %v", err))
	}
	schema, err := c.Compile("arrears://report-schema.json")
	if err != nil {
		panic(fmt.Sprintf("output: invalid report schema: %v", err))
	}
	return schema
}

// ValidateReportJSON checks raw report bytes against the schema.
func ValidateReportJSON(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse report: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("report schema validation: %w", err)
	}
	return nil
}

// LoadReport reads and validates a persisted report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if err := ValidateReportJSON(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &report, nil
}
