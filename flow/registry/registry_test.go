package registry

import (
	"testing"

	"github.com/flowforge/flowrun/flow"
)

func TestRegistryDispatchesToRegisteredHandler(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(flow.NodeUpdateVariable, HandlerFunc(func(ec ExecContext, node *flow.Node) (any, error) {
		called = true
		return "ok", nil
	}))

	out, err := r.Execute(ExecContext{}, &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || out != "ok" {
		t.Fatalf("expected handler invoked with output ok, got called=%v out=%v", called, out)
	}
}

func TestRegistryErrorsOnUnregisteredKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(ExecContext{}, &flow.Node{ID: "n1", Type: flow.NodeLLM})
	if err == nil {
		t.Fatal("expected error for unregistered node type")
	}
}
