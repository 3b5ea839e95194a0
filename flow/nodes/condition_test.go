package nodes

import (
	"testing"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/state"
)

func TestConditionSelectsFirstMatchingBranchInOrder(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	var ranBranch string
	run := func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error) {
		if len(nodes) > 0 {
			ranBranch = nodes[0].ID
		}
		return nil, nil
	}

	node := &flow.Node{
		ID:   "cond",
		Type: flow.NodeCondition,
		Input: map[string]any{"switch_value": float64(7)},
		Branches: map[string]flow.Branch{
			"low":  {Condition: "less_than", Value: float64(5), Nodes: []flow.Node{{ID: "low-body"}}},
			"high": {Condition: "greater_than", Value: float64(5), Nodes: []flow.Node{{ID: "high-body"}}},
		},
		BranchOrder: []string{"low", "high"},
	}

	out, err := ConditionHandler{Run: run}.Execute(ec, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["matched_branch"] != "high" {
		t.Fatalf("expected high branch matched, got %v", out)
	}
	if ranBranch != "high-body" {
		t.Fatalf("expected high-body executed, got %s", ranBranch)
	}
}

func TestConditionFallsBackToDefault(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	run := func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error) {
		return nil, nil
	}

	node := &flow.Node{
		ID:   "cond",
		Type: flow.NodeCondition,
		Input: map[string]any{"switch_value": "z"},
		Branches: map[string]flow.Branch{
			"a":       {Condition: "equals", Value: "a", Nodes: []flow.Node{{ID: "a-body"}}},
			"default": {Nodes: []flow.Node{{ID: "default-body"}}},
		},
		BranchOrder: []string{"a", "default"},
	}

	out, err := ConditionHandler{Run: run}.Execute(ec, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["matched_branch"] != "default" {
		t.Fatalf("expected default branch matched, got %v", out)
	}
}

func TestConditionNoMatchAndNoDefault(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	run := func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error) {
		t.Fatal("run should not be called when no branch matches")
		return nil, nil
	}

	node := &flow.Node{
		ID:   "cond",
		Type: flow.NodeCondition,
		Input: map[string]any{"switch_value": "z"},
		Branches: map[string]flow.Branch{
			"a": {Condition: "equals", Value: "a"},
		},
		BranchOrder: []string{"a"},
	}

	out, err := ConditionHandler{Run: run}.Execute(ec, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["matched_branch"] != nil {
		t.Fatalf("expected no branch matched, got %v", out)
	}
}
