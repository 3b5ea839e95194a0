package openai

import (
	"testing"

	"github.com/flowforge/flowrun/flow/provider"
)

func TestConvertMessagesMapsRoles(t *testing.T) {
	out := convertMessages([]provider.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "unexpected", Content: "fallback"},
	})
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	if out[0].OfSystem == nil {
		t.Fatal("expected system message")
	}
	if out[1].OfUser == nil {
		t.Fatal("expected user message")
	}
	if out[2].OfAssistant == nil {
		t.Fatal("expected assistant message")
	}
	if out[3].OfUser == nil {
		t.Fatal("expected unknown role to fall back to user")
	}
}

func TestDecodeOutputWithoutSchemaWrapsText(t *testing.T) {
	out, err := decodeOutput("plain reply", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["text"] != "plain reply" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestDecodeOutputWithSchemaParsesJSON(t *testing.T) {
	out, err := decodeOutput(`{"summary":"ok"}`, map[string]any{"summary": struct{}{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["summary"] != "ok" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestJSONSchemaParamIncludesAllFieldsAsRequired(t *testing.T) {
	schemaParam, err := jsonSchemaParam(map[string]any{"a": nil, "b": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	schema, ok := schemaParam.JSONSchema.Schema.(map[string]any)
	if !ok {
		t.Fatalf("expected schema map, got %T", schemaParam.JSONSchema.Schema)
	}
	required, ok := schema["required"].([]any)
	if !ok || len(required) != 2 {
		t.Fatalf("expected 2 required fields, got %v", schema["required"])
	}
}

func TestToFloat32Slice(t *testing.T) {
	out := toFloat32Slice([]float64{1.5, 2.5})
	if len(out) != 2 || out[0] != 1.5 || out[1] != 2.5 {
		t.Fatalf("unexpected conversion: %v", out)
	}
}
