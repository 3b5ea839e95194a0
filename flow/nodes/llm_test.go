package nodes

import (
	"testing"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/state"
)

func TestLLMHandlerResolvesMessagesAndCallsProvider(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "topic", Default: "cats"}}), nil)
	reg := provider.NewRegistry()
	fake := &fakeLLM{response: provider.LLMResponse{Output: map[string]any{"summary": "ok"}}}
	reg.RegisterLLM("openai", fake)

	node := &flow.Node{
		ID:   "llm-1",
		Type: flow.NodeLLM,
		Config: map[string]any{"provider": "openai", "model": "gpt-4o"},
		Messages: []flow.Message{
			{Role: "user", Content: "Tell me about {{topic}}"},
		},
		Output: map[string]flow.OutputFieldSpec{"summary": {Type: "string"}},
	}

	out, err := LLMHandler{}.Execute(newExecContext(reg, st), node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["summary"] != "ok" {
		t.Fatalf("unexpected output: %v", out)
	}
	resolvedMsg := fake.lastReq.Messages[0].Content
	if resolvedMsg != "Tell me about cats" {
		t.Fatalf("expected resolved message content, got %v", resolvedMsg)
	}
}

func TestLLMHandlerRequiresProviderAndModel(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	reg := provider.NewRegistry()
	node := &flow.Node{ID: "llm-1", Type: flow.NodeLLM}
	if _, err := (LLMHandler{}).Execute(newExecContext(reg, st), node); err == nil {
		t.Fatal("expected error when provider/model missing")
	}
}
