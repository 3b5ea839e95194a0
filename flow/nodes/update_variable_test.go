package nodes

import (
	"testing"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/state"
)

func runUpdateVariable(t *testing.T, st *state.Registry, node *flow.Node) any {
	t.Helper()
	ec := newExecContext(provider.NewRegistry(), st)
	out, err := UpdateVariableHandler{}.Execute(ec, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestUpdateVariableUpdate(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "x"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "x", "type": OpUpdate},
		Value:  "hello",
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("x")
	if v != "hello" {
		t.Fatalf("expected hello, got %v", v)
	}
}

func TestUpdateVariableJoinDefaultsToStringify(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "x", Default: "a"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "x", "type": OpJoin, "join_str": "-"},
		Value:  "b",
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("x")
	if v != "a-b" {
		t.Fatalf("expected a-b, got %v", v)
	}
}

func TestUpdateVariableAppend(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "items", Default: []any{"a"}}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "items", "type": OpAppend},
		Value:  "b",
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("items")
	seq, ok := v.([]any)
	if !ok || len(seq) != 2 || seq[1] != `"b"` {
		t.Fatalf("expected [a, \"b\"] (stringified append default), got %v", v)
	}
}

func TestUpdateVariableExtract(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpExtract, "field_path": "name"},
		Value: []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b"},
		},
	}
	out := runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("out")
	seq, ok := v.([]any)
	if !ok || len(seq) != 2 || seq[0] != "a" || seq[1] != "b" {
		t.Fatalf("expected [a b], got %v", v)
	}
	if out.(map[string]any)["operation"] != OpExtract {
		t.Fatalf("expected operation recorded in output")
	}
}

func TestUpdateVariablePickAndOmit(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out"}}), nil)
	src := map[string]any{"a": 1, "b": 2, "c": 3}

	pickNode := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpPick, "fields": []any{"a", "c"}},
		Value:  src,
	}
	runUpdateVariable(t, st, pickNode)
	picked, _ := st.GetVariable("out")
	pm := picked.(map[string]any)
	if len(pm) != 2 || pm["a"] != 1 || pm["c"] != 3 {
		t.Fatalf("unexpected pick result: %v", pm)
	}

	omitNode := &flow.Node{ID: "n2", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpOmit, "fields": []any{"b"}},
		Value:  src,
	}
	runUpdateVariable(t, st, omitNode)
	omitted, _ := st.GetVariable("out")
	om := omitted.(map[string]any)
	if len(om) != 2 || om["a"] != 1 || om["c"] != 3 {
		t.Fatalf("unexpected omit result: %v", om)
	}
}

func TestUpdateVariableFilter(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{
			"variable_id": "out",
			"type":        OpFilter,
			"condition":   map[string]any{"field": "score", "operator": "greater_than", "value": float64(5)},
		},
		Value: []any{
			map[string]any{"score": float64(3)},
			map[string]any{"score": float64(9)},
		},
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("out")
	seq := v.([]any)
	if len(seq) != 1 {
		t.Fatalf("expected one element to pass filter, got %v", seq)
	}
}

func TestUpdateVariableSlice(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpSlice, "slice_start": float64(1), "slice_end": float64(3)},
		Value:  []any{"a", "b", "c", "d"},
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("out")
	seq := v.([]any)
	if len(seq) != 2 || seq[0] != "b" || seq[1] != "c" {
		t.Fatalf("unexpected slice result: %v", seq)
	}
}

func TestUpdateVariableFlatten(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out"}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpFlatten},
		Value:  []any{[]any{"a", "b"}, []any{"c"}},
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("out")
	seq := v.([]any)
	if len(seq) != 3 {
		t.Fatalf("expected flattened 3 elements, got %v", seq)
	}
}

func TestUpdateVariableConcat(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "out", Default: []any{"a"}}}), nil)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "out", "type": OpConcat},
		Value:  []any{"b", "c"},
	}
	runUpdateVariable(t, st, node)
	v, _ := st.GetVariable("out")
	seq := v.([]any)
	if len(seq) != 3 {
		t.Fatalf("expected concatenated 3 elements, got %v", seq)
	}
}

func TestUpdateVariableRejectsUnknownOperation(t *testing.T) {
	st := state.NewRegistry(testFlow([]flow.VariableDeclaration{{ID: "x"}}), nil)
	ec := newExecContext(provider.NewRegistry(), st)
	node := &flow.Node{ID: "n1", Type: flow.NodeUpdateVariable,
		Config: map[string]any{"variable_id": "x", "type": "bogus"},
	}
	if _, err := (UpdateVariableHandler{}).Execute(ec, node); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}
