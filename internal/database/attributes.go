package database

import (
	"encoding/json"
	"fmt"
)

// StringAttributes keeps only the string-valued, non-reserved entries of attrs.
func StringAttributes(attrs map[string]any) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if s, ok := v.(string); ok && !IsReservedField(k) {
			out[k] = s
		}
	}
	return out
}

// EncodeAttributesJSON encodes attributes for SQL stores; nil encodes as an empty object.
func EncodeAttributesJSON(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return data, nil
}

// DecodeAttributesJSON decodes a stored attributes document, skipping non-string values.
func DecodeAttributesJSON(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return StringAttributes(raw), nil
}
