package analysis

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractionSchemaJSON mirrors the structure the extraction prompt demands.
// Presence and types are enforced here; non-emptiness is the report
// validator's job, so "" still passes.
const extractionSchemaJSON = `{
  "type": "object",
  "properties": {
    "markers": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "marker": {"type": "string"},
          "value": {"type": ["string", "number"]},
          "unit": {"type": ["string", "null"]},
          "reference_range": {"type": ["string", "null"]}
        },
        "required": ["marker", "value"]
      }
    },
    "document_type": {"type": "string"},
    "test_date": {"type": ["string", "null"]}
  },
  "required": ["markers", "document_type"]
}`

var extractionSchema = jsonschema.MustCompileString("extraction.json", extractionSchemaJSON)
