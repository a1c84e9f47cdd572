package catalog

import (
	"encoding/json"
	"testing"

	"github.com/flemzord/mcplab/internal/provider"
)

func TestTranslate_PreservesFieldsAndOrder(t *testing.T) {
	t.Parallel()

	schema := json.RawMessage(`{"type":"object","properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}`)
	tools := []ToolDescriptor{
		{Name: "add", Description: "Add two integers", InputSchema: schema},
		{Name: "echo", Description: "Echo text", InputSchema: json.RawMessage(`{"type":"object"}`)},
		{Name: "now_iso"},
	}

	defs := Translate(tools)
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}

	for i, want := range []string{"add", "echo", "now_iso"} {
		if defs[i].Function.Name != want {
			t.Errorf("index %d: expected %q, got %q", i, want, defs[i].Function.Name)
		}
		if defs[i].Type != provider.ToolTypeFunction {
			t.Errorf("index %d: expected type function, got %q", i, defs[i].Type)
		}
	}
	if defs[0].Function.Description != "Add two integers" {
		t.Errorf("expected description to be kept, got %q", defs[0].Function.Description)
	}
	if string(defs[0].Function.Parameters) != string(schema) {
		t.Errorf("expected schema to be kept, got %s", defs[0].Function.Parameters)
	}
}

func TestTranslate_Defaults(t *testing.T) {
	t.Parallel()

	tests := map[string]json.RawMessage{
		"nil schema":   nil,
		"empty schema": json.RawMessage(``),
		"null schema":  json.RawMessage(`null`),
		"array schema": json.RawMessage(`["x"]`),
		"invalid json": json.RawMessage(`{"type":`),
		"whitespace":   json.RawMessage("  \n"),
	}

	for name, schema := range tests {
		defs := Translate([]ToolDescriptor{{Name: "t", InputSchema: schema}})
		if len(defs) != 1 {
			t.Fatalf("%s: expected one definition, got %d", name, len(defs))
		}
		fn := defs[0].Function
		if fn.Description != "" {
			t.Errorf("%s: expected empty description, got %q", name, fn.Description)
		}
		if string(fn.Parameters) != `{"type":"object","properties":{}}` {
			t.Errorf("%s: expected empty object schema, got %s", name, fn.Parameters)
		}
	}
}

func TestTranslate_WireShape(t *testing.T) {
	t.Parallel()

	defs := Translate([]ToolDescriptor{{Name: "whoami"}})
	data, err := json.Marshal(defs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `[{"type":"function","function":{"name":"whoami","description":"","parameters":{"type":"object","properties":{}}}}]`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestTranslate_Empty(t *testing.T) {
	t.Parallel()

	defs := Translate(nil)
	if defs == nil || len(defs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", defs)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	got := Names([]ToolDescriptor{{Name: "b"}, {Name: "a"}})
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("expected [b a], got %v", got)
	}
}
