// Package schema builds the JSON schemas plugins describe their configuration with.
package schema

// Object returns a closed object schema: unknown keys are rejected so that
// misspelled settings surface at startup.
func Object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// String describes a string property.
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Enum describes a string property restricted to values.
func Enum(description string, def string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "default": def, "enum": values}
}

// Integer describes a non-negative integer property.
func Integer(description string, def int) map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "description": description, "default": def}
}

// Strings describes an array of strings.
func Strings(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

// WithBatching adds the batchSize and flushInterval settings shared by
// buffered writers.
func WithBatching(props map[string]any) map[string]any {
	props["batchSize"] = Integer("Number of expenses to buffer before writing (default: 10)", 10)
	props["flushInterval"] = Integer("Interval in seconds between automatic flushes (default: 30)", 30)
	return props
}
