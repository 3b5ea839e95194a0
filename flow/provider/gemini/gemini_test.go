package gemini

import (
	"testing"

	"google.golang.org/genai"

	"github.com/flowforge/flowrun/flow/provider"
)

func TestConvertMessagesMapsAssistantToModelRole(t *testing.T) {
	contents := convertMessages([]provider.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Fatalf("expected user role, got %v", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Fatalf("expected model role, got %v", contents[1].Role)
	}
}

func TestTextOfConcatenatesParts(t *testing.T) {
	content := genai.NewContentFromParts([]*genai.Part{
		{Text: "hello "},
		{Text: "world"},
	}, genai.RoleModel)
	if got := textOf(content); got != "hello world" {
		t.Fatalf("unexpected text: %q", got)
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
