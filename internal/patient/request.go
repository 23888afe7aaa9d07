package patient

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a request that is missing a field or cannot be decoded.
// Handlers still answer it with a 500 failure response.
var ErrInvalidRequest = errors.New("invalid request")

// Request body fields.
const (
	fieldImage      = "image_base64"
	fieldPatientID  = "patient_id"
	fieldAttributes = "attributes"
)

// Request is one handler invocation. Body may be nil, a JSON document as string,
// []byte or json.RawMessage, or an already decoded map.
type Request struct {
	Body any
}

// parseBody turns the request body into a JSON object.
func parseBody(body any) (map[string]any, error) {
	switch b := body.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return b, nil
	case string:
		return parseJSONObject([]byte(b))
	case []byte:
		return parseJSONObject(b)
	case json.RawMessage:
		return parseJSONObject(b)
	default:
		return nil, fmt.Errorf("%w: unsupported body type %T", ErrInvalidRequest, body)
	}
}

func parseJSONObject(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: body is not a JSON object: %w", ErrInvalidRequest, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// requiredString returns a non-empty string field.
func requiredString(body map[string]any, key string) (string, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing required field %q", ErrInvalidRequest, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string", ErrInvalidRequest, key)
	}
	if s == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrInvalidRequest, key)
	}
	return s, nil
}

// decodeImage reads and base64-decodes the image field.
func decodeImage(body map[string]any) ([]byte, error) {
	encoded, err := requiredString(body, fieldImage)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %w", ErrInvalidRequest, fieldImage, err)
	}
	return data, nil
}

// attributes returns the optional attributes object; null counts as absent.
func attributes(body map[string]any) (map[string]any, error) {
	v, ok := body[fieldAttributes]
	if !ok || v == nil {
		return nil, nil
	}
	attrs, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %q must be an object", ErrInvalidRequest, fieldAttributes)
	}
	return attrs, nil
}
