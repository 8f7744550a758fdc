package toolspec

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeWrapsPropertyMap(t *testing.T) {
	params, err := Normalize(json.RawMessage(`{"query":{"type":"string"},"lang":{"type":"string"}}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if params["type"] != "object" {
		t.Fatalf("type = %v", params["type"])
	}
	props, ok := params["properties"].(map[string]any)
	if !ok || len(props) != 2 {
		t.Fatalf("properties = %#v", params["properties"])
	}
	req, ok := params["required"].([]any)
	if !ok || len(req) != 2 || req[0] != "lang" || req[1] != "query" {
		t.Fatalf("required = %#v", params["required"])
	}
}

func TestNormalizeKeepsFullSchema(t *testing.T) {
	raw := `{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`
	params, err := Normalize(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, ok := params["properties"].(map[string]any)["q"]; !ok {
		t.Fatalf("schema altered: %#v", params)
	}
}

func TestNormalizeJSONString(t *testing.T) {
	params, err := Normalize(json.RawMessage(`"{\"type\":\"object\"}"`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if params["type"] != "object" {
		t.Fatalf("params = %#v", params)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", `""`} {
		params, err := Normalize(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("Normalize(%q): %v", raw, err)
		}
		if params["type"] != "object" {
			t.Fatalf("Normalize(%q) = %#v", raw, params)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `42`, `"not json"`, `{"type":12}`} {
		if _, err := Normalize(json.RawMessage(raw)); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("Normalize(%s) err = %v, want ErrInvalidParameters", raw, err)
		}
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	b, err := CanonicalJSON(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if string(b) != `{"a":"x","b":1}` {
		t.Fatalf("got %s", b)
	}
}
