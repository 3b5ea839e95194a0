// Package flow implements the declarative flow-graph data model and
// validator: a JSON document describing variables and an ordered sequence of
// heterogeneous nodes that validate into a topologically ordered execution
// plan.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// NodeKind is the closed set of node kinds a flow may use.
type NodeKind string

// Supported node kinds.
const (
	NodeLLM              NodeKind = "LLM"
	NodeDocumentSplitter NodeKind = "DOCUMENT_SPLITTER"
	NodeTextEmbedding    NodeKind = "TEXT_EMBEDDING"
	NodeVectorInsert     NodeKind = "VECTOR_INSERT"
	NodeVectorSearch     NodeKind = "VECTOR_SEARCH"
	NodeVectorUpdate     NodeKind = "VECTOR_UPDATE"
	NodeVectorDelete     NodeKind = "VECTOR_DELETE"
	NodeUpdateVariable   NodeKind = "UPDATE_VARIABLE"
	NodeCondition        NodeKind = "CONDITION"
	NodeForEach          NodeKind = "FOR_EACH"
)

// KnownNodeKinds is the closed enum of node kinds; the structural validation
// pass rejects anything outside this set.
var KnownNodeKinds = map[NodeKind]bool{
	NodeLLM:              true,
	NodeDocumentSplitter: true,
	NodeTextEmbedding:    true,
	NodeVectorInsert:     true,
	NodeVectorSearch:     true,
	NodeVectorUpdate:     true,
	NodeVectorDelete:     true,
	NodeUpdateVariable:   true,
	NodeCondition:        true,
	NodeForEach:          true,
}

// VariableType is the closed set of declared variable types.
type VariableType string

// Supported variable types. A declaration without a type is untyped and
// skips type checks.
const (
	TypeString  VariableType = "string"
	TypeNumber  VariableType = "number"
	TypeBoolean VariableType = "boolean"
	TypeFile    VariableType = "file"
	TypeArray   VariableType = "array"
	TypeObject  VariableType = "object"
)

// VariableDeclaration declares a flow-level variable: its id, optional
// default value, and optional type tag.
type VariableDeclaration struct {
	ID      string       `json:"id"`
	Type    VariableType `json:"type,omitempty"`
	Default any          `json:"default,omitempty"`
}

// Message is a single LLM conversation message. Content may be plain text or
// a list of content parts (text/image); the provider client interprets it.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// OutputFieldSpec describes one field of an LLM node's declared output
// schema, used to validate the provider's structured reply.
type OutputFieldSpec struct {
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Items       *OutputFieldSpec           `json:"items,omitempty"`
	Structure   map[string]OutputFieldSpec `json:"structure,omitempty"`
}

// Branch is a single named branch of a CONDITION node.
type Branch struct {
	Condition string `json:"condition,omitempty"`
	Value     any    `json:"value,omitempty"`
	Nodes     []Node `json:"nodes,omitempty"`
}

// DefaultBranchName is the reserved branch evaluated only when no other
// branch's (operator, value) matches.
const DefaultBranchName = "default"

// Node is a single executable step in a flow. Fields not relevant to a given
// Type are left zero; each node executor interprets only the fields its kind
// defines.
type Node struct {
	ID   string   `json:"id"`
	Type NodeKind `json:"type"`
	Name string   `json:"name"`

	Config map[string]any `json:"config,omitempty"`

	// LLM
	Messages []Message                  `json:"messages,omitempty"`
	Output   map[string]OutputFieldSpec `json:"output,omitempty"`

	// DOCUMENT_SPLITTER
	Document any `json:"document,omitempty"`

	// TEXT_EMBEDDING, VECTOR_*, CONDITION (switch_value), FOR_EACH (items)
	Input map[string]any `json:"input,omitempty"`

	// FOR_EACH
	EachNodes []Node `json:"each_nodes,omitempty"`

	// UPDATE_VARIABLE
	Value any `json:"value,omitempty"`

	// CONDITION
	Branches    map[string]Branch `json:"branches,omitempty"`
	BranchOrder []string          `json:"-"`
}

// nodeAlias has Node's shape minus the methods, so UnmarshalJSON can decode
// into it without infinite recursion.
type nodeAlias Node

// UnmarshalJSON decodes a Node and additionally recovers the declaration
// order of its "branches" object. encoding/json does not preserve object key
// order when decoding into a map, but spec §4.6 requires branches to be
// evaluated in declaration order, so branches is decoded a second time from
// its raw token stream.
func (n *Node) UnmarshalJSON(data []byte) error {
	aux := struct {
		BranchesRaw json.RawMessage `json:"branches,omitempty"`
		*nodeAlias
	}{nodeAlias: (*nodeAlias)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.BranchesRaw) == 0 {
		return nil
	}
	branches, order, err := decodeOrderedBranches(aux.BranchesRaw)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Branches = branches
	n.BranchOrder = order
	return nil
}

// decodeOrderedBranches decodes a JSON object of {name: Branch} pairs while
// recording the order in which keys appeared.
func decodeOrderedBranches(raw json.RawMessage) (map[string]Branch, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("branches must be a JSON object")
	}

	branches := make(map[string]Branch)
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("branch name must be a string")
		}
		var b Branch
		if err := dec.Decode(&b); err != nil {
			return nil, nil, fmt.Errorf("branch %q: %w", key, err)
		}
		branches[key] = b
		order = append(order, key)
	}
	return branches, order, nil
}

// OrderedBranches returns branch names in declaration order. If BranchOrder
// was never populated (e.g. a Node built by hand rather than parsed from
// JSON), it returns the names sorted, with default last when present.
func (n *Node) OrderedBranches() []string {
	if len(n.BranchOrder) > 0 {
		return n.BranchOrder
	}
	names := make([]string, 0, len(n.Branches))
	hasDefault := false
	for name := range n.Branches {
		if name == DefaultBranchName {
			hasDefault = true
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if hasDefault {
		names = append(names, DefaultBranchName)
	}
	return names
}

// Flow is the top-level workflow document: an identifier triple, declared
// variables, declared input/output variable ids, and an ordered node list.
type Flow struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`

	Variables []VariableDeclaration `json:"variables"`
	Input     []string              `json:"input"`
	Output    []string              `json:"output"`
	Nodes     []Node                `json:"nodes"`
}

// Parse decodes raw JSON into a Flow. CONDITION branch declaration order is
// recovered automatically by Node.UnmarshalJSON (spec §4.6 requires branches
// to fire in declaration order, which a map cannot preserve on its own).
func Parse(data []byte) (*Flow, error) {
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("flow: failed to parse flow JSON: %w", err)
	}
	return &f, nil
}

// ParseString decodes a JSON string into a Flow.
func ParseString(s string) (*Flow, error) {
	return Parse([]byte(s))
}

// ToJSON serializes a Flow back to indented JSON, primarily for tooling and
// tests.
func ToJSON(f *Flow) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// VariableDeclByID returns the declaration for id, if any.
func (f *Flow) VariableDeclByID(id string) (VariableDeclaration, bool) {
	for _, v := range f.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return VariableDeclaration{}, false
}

// NodeByID returns the top-level node with the given id. It does not search
// inside FOR_EACH bodies or CONDITION branches; use AllNodes for that.
func (f *Flow) NodeByID(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// AllNodes returns every node in the flow, including those nested inside
// FOR_EACH bodies and CONDITION branches, recursively. Node ids must be
// globally unique across this set (spec §3 invariants).
func (f *Flow) AllNodes() []*Node {
	var out []*Node
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for i := range nodes {
			n := &nodes[i]
			out = append(out, n)
			if n.Type == NodeForEach {
				walk(n.EachNodes)
			}
			if n.Type == NodeCondition {
				for _, name := range n.OrderedBranches() {
					if b, ok := n.Branches[name]; ok {
						walk(b.Nodes)
					}
				}
			}
		}
	}
	walk(f.Nodes)
	return out
}
