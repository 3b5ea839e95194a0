package nodes

import (
	"testing"
	"time"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/state"
)

func TestForEachIteratesSequentiallyWithScopedKeys(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	var seenItems []any
	var seenIndices []any
	run := func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error) {
		item, _ := ec.State.GetVariable("item")
		idx, _ := ec.State.GetVariable("item_index")
		seenItems = append(seenItems, item)
		seenIndices = append(seenIndices, idx)
		return []map[string]any{{"ok": true}}, nil
	}

	node := &flow.Node{
		ID:    "loop",
		Type:  flow.NodeForEach,
		Config: map[string]any{"each_key": "item"},
		Input: map[string]any{"items": []any{"a", "b", "c"}},
		EachNodes: []flow.Node{{ID: "body-1"}},
	}

	out, err := ForEachHandler{Run: run}.Execute(ec, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seenItems) != 3 || seenItems[0] != "a" || seenItems[2] != "c" {
		t.Fatalf("expected items a,b,c in order, got %v", seenItems)
	}
	if len(seenIndices) != 3 || seenIndices[0] != 0 || seenIndices[2] != 2 {
		t.Fatalf("expected indices 0,1,2, got %v", seenIndices)
	}
	result := out.(map[string]any)
	if result["total_items"] != 3 {
		t.Fatalf("expected total_items 3, got %v", result["total_items"])
	}
	if result["processed_items"] != 3 {
		t.Fatalf("expected processed_items 3, got %v", result["processed_items"])
	}
	results, ok := result["results"].([]map[string]any)
	if !ok || len(results) != 3 {
		t.Fatalf("expected 3 per-iteration results, got %#v", result["results"])
	}
	if results[0]["item"] != "a" || results[0]["index"] != 0 {
		t.Fatalf("unexpected first result entry: %#v", results[0])
	}
}

func TestForEachHonorsDelayBetweenConfigKey(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	run := func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error) {
		return []map[string]any{{"ok": true}}, nil
	}

	node := &flow.Node{
		ID:        "loop",
		Type:      flow.NodeForEach,
		Config:    map[string]any{"each_key": "item", "delay_between": float64(1)},
		Input:     map[string]any{"items": []any{"a", "b"}},
		EachNodes: []flow.Node{{ID: "body-1"}},
	}

	start := time.Now()
	if _, err := (ForEachHandler{Run: run}).Execute(ec, node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < time.Millisecond {
		t.Fatal("expected delay_between to introduce a measurable delay between iterations")
	}
}

func TestForEachRejectsEmptyBody(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	node := &flow.Node{
		ID:     "loop",
		Type:   flow.NodeForEach,
		Config: map[string]any{"each_key": "item"},
		Input:  map[string]any{"items": []any{"a"}},
	}

	if _, err := (ForEachHandler{}).Execute(ec, node); err == nil {
		t.Fatal("expected error for empty for-each body")
	}
}

func TestForEachRejectsNonArrayItems(t *testing.T) {
	st := state.NewRegistry(testFlow(nil), nil)
	ec := newExecContext(provider.NewRegistry(), st)

	node := &flow.Node{
		ID:        "loop",
		Type:      flow.NodeForEach,
		Config:    map[string]any{"each_key": "item"},
		Input:     map[string]any{"items": "not-an-array"},
		EachNodes: []flow.Node{{ID: "body-1"}},
	}

	if _, err := (ForEachHandler{}).Execute(ec, node); err == nil {
		t.Fatal("expected error for non-array items")
	}
}
