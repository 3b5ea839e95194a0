package flow

import "testing"

func TestBuildOrderRespectsDependencies(t *testing.T) {
	nodes := []Node{
		{ID: "b", Type: NodeUpdateVariable, Value: "{{a.output.text}}"},
		{ID: "a", Type: NodeLLM},
		{ID: "c", Type: NodeUpdateVariable, Value: "{{b.output.result}}"},
	}

	order, edges, err := BuildOrder(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] >= pos["b"] || pos["b"] >= pos["c"] {
		t.Fatalf("expected order a, b, c; got %v", order)
	}
}

func TestBuildOrderKeepsDeclarationOrderWhenIndependent(t *testing.T) {
	nodes := []Node{
		{ID: "first", Type: NodeLLM},
		{ID: "second", Type: NodeLLM},
		{ID: "third", Type: NodeLLM},
	}
	order, edges, err := BuildOrder(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(edges))
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected declaration order %v, got %v", want, order)
		}
	}
}

func TestBuildOrderDetectsCycle(t *testing.T) {
	nodes := []Node{
		{ID: "a", Type: NodeUpdateVariable, Value: "{{b.output.x}}"},
		{ID: "b", Type: NodeUpdateVariable, Value: "{{a.output.x}}"},
	}
	_, _, err := BuildOrder(nodes)
	if err == nil {
		t.Fatal("expected circular dependency error")
	}
}

func TestBuildOrderIgnoresNonOutputReferences(t *testing.T) {
	nodes := []Node{
		{ID: "a", Type: NodeUpdateVariable, Value: "{{some_var}}"},
		{ID: "b", Type: NodeUpdateVariable, Value: "{{a.config.something}}"},
	}
	order, edges, err := BuildOrder(nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges since no reference targets .output, got %d", len(edges))
	}
	if order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected declaration order, got %v", order)
	}
}
