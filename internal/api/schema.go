package api

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schedule_schema.json
var scheduleSchemaJSON []byte

var scheduleSchema = mustCompileScheduleSchema()

func mustCompileScheduleSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(scheduleSchemaJSON)
	if err != nil {
		panic(fmt.Sprintf("failed to compile schedule schema: %v", err))
	}
	return schema
}

// validateSchedulePayload shape-checks the raw schedule update before the
// semantic validator sees it: day keys, roll fields, and types only.
func validateSchedulePayload(payload map[string]interface{}) error {
	result := scheduleSchema.Validate(payload)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		return fmt.Errorf("schedule validation failed: %s", strings.Join(errorMessages, "; "))
	}
	return nil
}
