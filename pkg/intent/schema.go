package intent

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// responseSchema only checks the envelope. Parameter types are coerced in
// fromMap.
var responseSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"requires_data"},
	"properties": map[string]interface{}{
		"requires_data": map[string]interface{}{"type": "boolean"},
		"query_type":    map[string]interface{}{"type": []interface{}{"string", "null"}},
		"use_context":   map[string]interface{}{"type": []interface{}{"boolean", "null"}},
		"parameters":    map[string]interface{}{"type": []interface{}{"object", "null"}},
	},
}

var schemaLoader = gojsonschema.NewGoLoader(responseSchema)

func validateResponse(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("response does not match schema: %s", strings.Join(errs, "; "))
	}
	if rd, _ := doc["requires_data"].(bool); rd {
		if qt, _ := doc["query_type"].(string); qt == "" {
			return fmt.Errorf("query_type is required when requires_data is true")
		}
	}
	return nil
}
