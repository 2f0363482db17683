package ktp

import "github.com/joseph-ayodele/ektp-scanner/constants"

// RecordSchema returns a JSON-Schema (draft 2020-12 subset) for one Record.
// Constrained fields are limited to their enumeration or "".
func RecordSchema() map[string]any {
	props := make(map[string]any, len(constants.FieldOrder))
	required := make([]string, 0, len(constants.FieldOrder))
	for _, f := range constants.FieldOrder {
		prop := map[string]any{"type": "string"}
		if allowed := constants.AllowedValues(f); allowed != nil {
			enum := append([]string{""}, allowed...)
			prop["enum"] = enum
		}
		props[string(f)] = prop
		required = append(required, string(f))
	}
	props[string(constants.TempatTanggalLahir)] = map[string]any{
		"type":    "string",
		"pattern": `^$|^[^\d]*, \d{2}-\d{2}-\d{4}$`,
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// RecordListSchema wraps RecordSchema in an array schema.
func RecordListSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": RecordSchema(),
	}
}
