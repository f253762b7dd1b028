// internal/canonical/schema.go
// JSON-schema diagnostics for upstream list payloads. The guard stays total;
// schema violations are only surfaced to callers for logging.
package canonical

import (
	"github.com/xeipuuv/gojsonschema"
)

// listSchema declares the shape a healthy upstream paginated response is
// expected to have. It intentionally allows unknown extra fields.
const listSchema = `{
	"type": "object",
	"required": ["results", "count"],
	"properties": {
		"results":  {"type": "array"},
		"count":    {"type": "integer", "minimum": 0},
		"next":     {"type": ["string", "null"]},
		"previous": {"type": ["string", "null"]}
	}
}`

var compiledListSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(listSchema))
	if err != nil {
		panic("canonical: invalid embedded list schema: " + err.Error())
	}
	compiledListSchema = s
}

// Check validates a decoded upstream payload against the expected list shape
// and returns human-readable violations, or nil when the payload conforms.
// Check never fails hard: validator errors come back as a single violation.
func Check(v any) []string {
	result, err := compiledListSchema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return []string{"payload not validatable: " + err.Error()}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations
}
