// Package toolspec normalizes and validates the JSON-schema parameter objects attached to tools.
package toolspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidParameters = errors.New("invalid tool parameters")

// Normalize accepts either a JSON object or a JSON string holding an object.
// An object without a "type" key is treated as a property map and wrapped into
// {"type":"object","properties":...,"required":[all keys]}.
// A missing or null value yields an empty object schema.
func Normalize(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return wrapProperties(map[string]any{}), nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
		trimmed = strings.TrimSpace(inner)
		if trimmed == "" {
			return wrapProperties(map[string]any{}), nil
		}
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(trimmed), &params); err != nil {
		return nil, fmt.Errorf("%w: must be a JSON object", ErrInvalidParameters)
	}
	if params == nil {
		params = map[string]any{}
	}
	if _, ok := params["type"]; !ok {
		params = wrapProperties(params)
	}
	if err := Validate(params); err != nil {
		return nil, err
	}
	return params, nil
}

func wrapProperties(props map[string]any) map[string]any {
	required := make([]any, 0, len(props))
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		required = append(required, k)
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Validate reports whether params compiles as a JSON schema.
func Validate(params map[string]any) error {
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// CanonicalJSON encodes v as RFC 8785 canonical JSON.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}
