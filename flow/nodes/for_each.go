package nodes

import (
	"fmt"
	"time"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
	"github.com/flowforge/flowrun/flow/state"
)

// ForEachHandler implements the FOR_EACH node: it resolves input.items to a
// sequence and runs the configured body once per element, sequentially, each
// iteration against its own state.ScopedRegistry overlay (spec §4.8).
type ForEachHandler struct {
	Run BranchExecutor
}

// Execute iterates config.each_key over input.items.
func (h ForEachHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	eachKey := configString(node, "each_key")
	if eachKey == "" {
		return nil, fmt.Errorf("for_each: node %s requires config.each_key", node.ID)
	}
	if len(node.EachNodes) == 0 {
		return nil, fmt.Errorf("for_each: node %s has no body nodes", node.ID)
	}

	resolver := resolve.New(ec.State)
	items := resolver.ResolveValue(node.Input["items"])
	seq, ok := items.([]any)
	if !ok {
		return nil, fmt.Errorf("for_each: node %s input.items did not resolve to an array", node.ID)
	}

	delay := time.Duration(configFloat(node, "delay_between", 0)) * time.Millisecond

	results := make([]map[string]any, 0, len(seq))
	for i, item := range seq {
		select {
		case <-ec.Ctx.Done():
			return nil, ec.Ctx.Err()
		default:
		}

		scoped := state.NewScopedRegistry(ec.State, eachKey, item, i)
		iterEC := ec
		iterEC.State = scoped

		iterResults, err := h.Run(iterEC, node.EachNodes)
		if err != nil {
			return nil, fmt.Errorf("for_each: node %s iteration %d: %w", node.ID, i, err)
		}
		results = append(results, map[string]any{
			"item":    item,
			"index":   i,
			"results": iterResults,
		})

		if delay > 0 && i < len(seq)-1 {
			select {
			case <-time.After(delay):
			case <-ec.Ctx.Done():
				return nil, ec.Ctx.Err()
			}
		}
	}

	return map[string]any{
		"total_items":     len(seq),
		"processed_items": len(results),
		"results":         results,
	}, nil
}
