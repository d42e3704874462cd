package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %v", ErrMalformedJSON, err)
	}
	return nil
}

// List fields of each stage output. SanitizeStageJSON coerces these to arrays.
var (
	PreparationListKeys = []string{"parties"}
	AnalysisListKeys    = []string{"obligations", "rights", "risks", "gaps_anomalies", "calendar", "suggestions", "mitigations"}
)

// PreparationSchema describes the stage-1 object. Extra keys are allowed;
// the normalizer ignores them.
func PreparationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agreement_type": str(),
			"parties": arrayOf(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role": str(),
					"name": str(),
				},
			}),
			"term_start":           str(),
			"term_end":             str(),
			"jurisdiction":         str(),
			"negotiability":        str(),
			"negotiability_reason": str(),
			"timezone_hint":        str(),
		},
		"required": []string{"agreement_type"},
	}
}

// AnalysisSchema describes the stage-2 object.
func AnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"obligations": arrayOf(object([]string{"action"}, map[string]any{
				"action":        str(),
				"trigger":       str(),
				"time_window":   str(),
				"consequence":   str(),
				"action_simple": str(),
			})),
			"rights": arrayOf(object([]string{"right"}, map[string]any{
				"right":           str(),
				"how_to_exercise": str(),
				"conditions":      str(),
				"simple":          str(),
			})),
			"risks": arrayOf(object([]string{"description"}, map[string]any{
				"description":    str(),
				"severity":       enum("low", "medium", "high"),
				"recommendation": str(),
				"category":       str(),
			})),
			"payment_terms": object(nil, map[string]any{
				"main_amount":         str(),
				"currency":            str(),
				"deposit_upfront":     str(),
				"first_due_date":      str(),
				"due_frequency":       str(),
				"end_date_renewal":    str(),
				"cancellation_notice": str(),
				"taxes_fees_note":     str(),
			}),
			"gaps_anomalies": arrayOf(str()),
			"calendar": arrayOf(object([]string{"event"}, map[string]any{
				"date_or_formula": str(),
				"event":           str(),
			})),
			"screening_result": str(),
			"suggestions":      arrayOf(str()),
			"mitigations":      arrayOf(str()),
			"summary":          str(),
		},
		"required": []string{"screening_result"},
	}
}

func str() map[string]any { return map[string]any{"type": "string"} }

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func object(required []string, props map[string]any) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}
