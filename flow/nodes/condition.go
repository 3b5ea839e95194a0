package nodes

import (
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/condition"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
)

// BranchExecutor runs a nested node list against the same ExecContext (minus
// the node being dispatched) and returns each node's recorded output, in
// node order. CONDITION and FOR_EACH both need to recurse back into node
// execution for their nested bodies; injecting it this way keeps this
// package from importing flow/executor, which would otherwise import nodes
// to register its handlers.
type BranchExecutor func(ec registry.ExecContext, nodes []flow.Node) ([]map[string]any, error)

// ConditionHandler implements the CONDITION node: it evaluates each branch's
// operator against the resolved switch_value, in declaration order, and
// executes the first (and only the first) branch whose condition matches,
// falling back to the reserved "default" branch if present.
type ConditionHandler struct {
	Run BranchExecutor
}

// Execute evaluates branches in order and runs the first match's node list.
func (h ConditionHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	resolver := resolve.New(ec.State)
	switchValue := resolver.ResolveValue(node.Input["switch_value"])

	branchName, matched, err := selectBranch(node, switchValue, resolver)
	if err != nil {
		return nil, fmt.Errorf("condition: node %s: %w", node.ID, err)
	}
	if !matched {
		return map[string]any{"matched_branch": nil, "executed": []map[string]any{}}, nil
	}

	branch := node.Branches[branchName]
	results, err := h.Run(ec, branch.Nodes)
	if err != nil {
		return nil, fmt.Errorf("condition: node %s branch %q: %w", node.ID, branchName, err)
	}
	return map[string]any{"matched_branch": branchName, "executed": results}, nil
}

// selectBranch walks branches in declaration order, evaluating each non-default
// branch's operator; the default branch (if declared) is only considered once
// every other branch has failed to match.
func selectBranch(node *flow.Node, switchValue any, resolver *resolve.Resolver) (string, bool, error) {
	var defaultName string
	hasDefault := false

	for _, name := range node.OrderedBranches() {
		branch := node.Branches[name]
		if name == flow.DefaultBranchName {
			defaultName = name
			hasDefault = true
			continue
		}
		expected := resolver.ResolveValue(branch.Value)
		matched, err := condition.Evaluate(branch.Condition, switchValue, expected)
		if err != nil {
			return "", false, err
		}
		if matched {
			return name, true, nil
		}
	}
	if hasDefault {
		return defaultName, true, nil
	}
	return "", false, nil
}
