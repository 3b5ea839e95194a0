package flow

import (
	"fmt"

	"github.com/flowforge/flowrun/flow/reference"
)

// Edge is a single producer-to-consumer dependency discovered among a set of
// sibling nodes: From must execute before To.
type Edge struct {
	From string
	To   string
}

// BuildOrder computes the execution order for one set of sibling nodes — the
// flow's top-level node list, a FOR_EACH body, or a CONDITION branch's node
// list. Per spec §4.2 pass 3, an edge runs from node A to node B only when B
// references {{A.output…}}; nodes with no dependency between them keep
// declaration order. Kahn's algorithm both produces the order and detects
// cycles, which are reported as a single aggregate error rather than pointing
// at one edge, since a cycle has no privileged entry point.
func BuildOrder(nodes []Node) ([]string, []Edge, error) {
	ids := make([]string, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		index[n.ID] = i
	}

	var edges []Edge
	inDegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string, len(nodes))
	for _, id := range ids {
		inDegree[id] = 0
	}

	for i := range nodes {
		consumer := nodes[i].ID
		for _, ref := range reference.Scan(nodePayload(&nodes[i])) {
			if len(ref.Tail) == 0 || ref.Tail[0] != "output" {
				continue
			}
			producer := ref.Head
			if _, ok := index[producer]; !ok || producer == consumer {
				continue
			}
			edges = append(edges, Edge{From: producer, To: consumer})
			adj[producer] = append(adj[producer], consumer)
			inDegree[consumer]++
		}
	}

	ready := make([]string, 0, len(ids))
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(ready) > 0 {
		bestPos := 0
		for i := 1; i < len(ready); i++ {
			if index[ready[i]] < index[ready[bestPos]] {
				bestPos = i
			}
		}
		id := ready[bestPos]
		ready = append(ready[:bestPos], ready[bestPos+1:]...)
		order = append(order, id)

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(ids) {
		return nil, edges, fmt.Errorf("flow: circular dependency among nodes %v", remaining(ids, order))
	}
	return order, edges, nil
}

// remaining returns the ids present in all but not in ordered, used to name
// the nodes still stuck in a cycle once Kahn's algorithm stalls.
func remaining(all, ordered []string) []string {
	done := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		done[id] = true
	}
	var stuck []string
	for _, id := range all {
		if !done[id] {
			stuck = append(stuck, id)
		}
	}
	return stuck
}

// nodePayload collects the parts of a node that can carry {{…}} references
// for dependency-graph and validation purposes. It deliberately excludes
// EachNodes and Branches[*].Nodes: those are separate nesting levels with
// their own execution order, not part of this node's sibling graph.
func nodePayload(n *Node) map[string]any {
	p := map[string]any{}
	if n.Config != nil {
		p["config"] = n.Config
	}
	if len(n.Messages) > 0 {
		msgs := make([]any, len(n.Messages))
		for i, m := range n.Messages {
			msgs[i] = m.Content
		}
		p["messages"] = msgs
	}
	if n.Document != nil {
		p["document"] = n.Document
	}
	if n.Input != nil {
		p["input"] = n.Input
	}
	if n.Value != nil {
		p["value"] = n.Value
	}
	if len(n.Branches) > 0 {
		branchValues := make(map[string]any, len(n.Branches))
		for name, b := range n.Branches {
			branchValues[name] = b.Value
		}
		p["branches"] = branchValues
	}
	return p
}
