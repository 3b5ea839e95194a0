package flow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flowforge/flowrun/flow/condition"
	"github.com/flowforge/flowrun/flow/reference"
)

// ProviderSet names the providers configured for each node category
// ("llm", "embedding", "vector"), used by the optional provider-availability
// pass. A nil ProviderSet skips that pass entirely.
type ProviderSet map[string]map[string]bool

// Configured reports whether provider is registered under category.
func (p ProviderSet) Configured(category, provider string) bool {
	if p == nil {
		return true
	}
	return p[category][provider]
}

// Result is the aggregate outcome of validating a Flow: a pass/fail flag,
// the ordered errors and warnings from all five passes (spec §4.2), and the
// top-level execution order when the structural and dependency-graph passes
// both succeed.
type Result struct {
	Valid    bool
	Errors   []*ValidationError
	Warnings []*ValidationWarning
	Order    []string
}

// Validator runs the five-pass validation pipeline — Structural, Reference
// resolution, Dependency graph, Provider availability, Semantic — over a
// parsed Flow, aggregating diagnostics rather than failing on the first one.
// It is structurally grounded in the teacher's single dsl.Validator.Validate
// pipeline (validateStructure -> validateStateVariables -> validateComponents
// -> validateTopology), generalized here to collect every error instead of
// returning on the first.
type Validator struct {
	Providers ProviderSet
}

// NewValidator creates a validator with no provider-availability checking.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithProviders creates a validator that also runs the
// provider-availability pass against the given configured providers.
func NewValidatorWithProviders(providers ProviderSet) *Validator {
	return &Validator{Providers: providers}
}

// Validate runs all five passes over f and returns the aggregated result.
func (v *Validator) Validate(f *Flow) *Result {
	res := &Result{Valid: true}
	if f == nil {
		res.Valid = false
		res.Errors = append(res.Errors, &ValidationError{Message: "flow is nil", Code: CodeInvalidFormat})
		return res
	}

	varIDs, nodeIDs := v.validateStructure(f, res)
	v.validateReferences(f, nodeIDs, varIDs, res)
	v.validateDependencyGraph(f, res)
	if v.Providers != nil {
		v.validateProviders(f, res)
	}
	v.validateSemantic(f, res)

	res.Valid = len(res.Errors) == 0
	return res
}

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

var knownVariableTypes = map[VariableType]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeFile:    true,
	TypeArray:   true,
	TypeObject:  true,
}

// --- Pass 1: Structural -----------------------------------------------

func (v *Validator) validateStructure(f *Flow, res *Result) (varIDs, nodeIDs map[string]bool) {
	if strings.TrimSpace(f.Name) == "" {
		v.addErr(res, "name", "flow name is required", CodeMissingRequiredField)
	}
	if !semverPattern.MatchString(f.Version) {
		v.addErr(res, "version", fmt.Sprintf("version %q is not a valid semantic version", f.Version), CodeInvalidFormat)
	}

	varIDs = make(map[string]bool)
	for i, decl := range f.Variables {
		path := fmt.Sprintf("variables[%d]", i)
		if strings.TrimSpace(decl.ID) == "" {
			v.addErr(res, path, "variable id is required", CodeMissingRequiredField)
			continue
		}
		if varIDs[decl.ID] {
			v.addErr(res, path, fmt.Sprintf("duplicate variable id %q", decl.ID), CodeDuplicateVariableID)
			continue
		}
		varIDs[decl.ID] = true
		if decl.Type != "" && !knownVariableTypes[decl.Type] {
			v.addErr(res, path, fmt.Sprintf("unknown variable type %q", decl.Type), CodeInvalidType)
		}
	}

	for i, id := range f.Input {
		if !varIDs[id] {
			v.addErr(res, fmt.Sprintf("input[%d]", i), fmt.Sprintf("declared input %q is not a declared variable", id), CodeInvalidVariableRef)
		}
	}
	for i, id := range f.Output {
		if !varIDs[id] {
			v.addErr(res, fmt.Sprintf("output[%d]", i), fmt.Sprintf("declared output %q is not a declared variable", id), CodeInvalidVariableRef)
		}
	}

	if len(f.Nodes) == 0 {
		v.addErr(res, "nodes", "flow must have at least one node", CodeMissingRequiredField)
	}

	nodeIDs = make(map[string]bool)
	v.walkNodes(f.Nodes, "nodes", res, nodeIDs)
	return varIDs, nodeIDs
}

func (v *Validator) walkNodes(nodes []Node, pathPrefix string, res *Result, nodeIDs map[string]bool) {
	for i := range nodes {
		n := &nodes[i]
		path := fmt.Sprintf("%s[%d]", pathPrefix, i)
		v.validateNode(n, path, res, nodeIDs)
		if n.Type == NodeForEach {
			v.walkNodes(n.EachNodes, path+".each_nodes", res, nodeIDs)
		}
		if n.Type == NodeCondition {
			for _, name := range n.OrderedBranches() {
				b, ok := n.Branches[name]
				if !ok {
					continue
				}
				v.walkNodes(b.Nodes, fmt.Sprintf("%s.branches[%s].nodes", path, name), res, nodeIDs)
			}
		}
	}
}

func (v *Validator) validateNode(n *Node, path string, res *Result, nodeIDs map[string]bool) {
	if strings.TrimSpace(n.ID) == "" {
		v.addErr(res, path, "node id is required", CodeMissingRequiredField)
	} else if nodeIDs[n.ID] {
		v.addErr(res, path, fmt.Sprintf("duplicate node id %q", n.ID), CodeDuplicateNodeID)
	} else {
		nodeIDs[n.ID] = true
	}
	if strings.TrimSpace(n.Name) == "" {
		v.addErr(res, path, "node name is required", CodeMissingRequiredField)
	}
	if !KnownNodeKinds[n.Type] {
		v.addErr(res, path, fmt.Sprintf("unknown node type %q", n.Type), CodeInvalidNodeType)
		return
	}

	switch n.Type {
	case NodeLLM:
		v.requireConfigString(n, path, "provider", res)
		v.requireConfigString(n, path, "model", res)
		if len(n.Messages) == 0 {
			v.addErr(res, path, "LLM node requires at least one message", CodeMissingRequiredField)
		}
		if len(n.Output) == 0 {
			v.addErr(res, path, "LLM node requires a non-empty output schema", CodeMissingRequiredField)
		}
	case NodeDocumentSplitter:
		v.requireConfigString(n, path, "image_quality", res)
		v.requireConfigField(n, path, "dpi", res)
		v.requireConfigString(n, path, "image_format", res)
		if n.Document == nil {
			v.addErr(res, path, "DOCUMENT_SPLITTER node requires document", CodeMissingRequiredField)
		}
	case NodeTextEmbedding:
		v.requireConfigString(n, path, "provider", res)
		v.requireConfigString(n, path, "model", res)
		if !hasAnyInputKey(n, "text", "texts", "items") {
			v.addErr(res, path, "TEXT_EMBEDDING node requires input.text, input.texts, or input.items", CodeMissingRequiredField)
		}
	case NodeVectorInsert, NodeVectorSearch, NodeVectorUpdate, NodeVectorDelete:
		v.requireConfigString(n, path, "provider", res)
		v.requireConfigString(n, path, "index_name", res)
		if len(n.Input) == 0 {
			v.addErr(res, path, fmt.Sprintf("%s node requires input", n.Type), CodeMissingRequiredField)
		}
	case NodeForEach:
		v.requireConfigString(n, path, "each_key", res)
		if !hasAnyInputKey(n, "items") {
			v.addErr(res, path, "FOR_EACH node requires input.items", CodeMissingRequiredField)
		}
		if len(n.EachNodes) == 0 {
			v.addErr(res, path, "FOR_EACH node requires a non-empty body", CodeMissingRequiredField)
		}
	case NodeUpdateVariable:
		v.requireConfigString(n, path, "variable_id", res)
		v.requireConfigString(n, path, "type", res)
	case NodeCondition:
		if !hasAnyInputKey(n, "switch_value") {
			v.addErr(res, path, "CONDITION node requires input.switch_value", CodeMissingRequiredField)
		}
		if len(n.Branches) == 0 {
			v.addErr(res, path, "CONDITION node requires at least one branch", CodeMissingRequiredField)
		}
		for name, b := range n.Branches {
			branchPath := fmt.Sprintf("%s.branches[%s]", path, name)
			if name == DefaultBranchName {
				continue
			}
			if strings.TrimSpace(b.Condition) == "" {
				v.addErr(res, branchPath, "branch requires a condition operator", CodeMissingRequiredField)
			} else if !condition.KnownOperators[b.Condition] {
				v.addErr(res, branchPath, fmt.Sprintf("unknown condition operator %q", b.Condition), CodeInvalidValue)
			}
		}
	}
}

// --- Pass 2: Reference resolution --------------------------------------

func (v *Validator) validateReferences(f *Flow, nodeIDs, varIDs map[string]bool, res *Result) {
	v.validateReferencesInNodes(f.Nodes, nodeIDs, varIDs, nil, res)
}

func (v *Validator) validateReferencesInNodes(nodes []Node, nodeIDs, varIDs, scopeKeys map[string]bool, res *Result) {
	for i := range nodes {
		n := &nodes[i]
		path := fmt.Sprintf("node %s", n.ID)
		for _, ref := range reference.Scan(nodePayload(n)) {
			v.validateReference(ref, path, nodeIDs, varIDs, scopeKeys, res)
		}
		if n.Type == NodeForEach {
			inner := cloneScope(scopeKeys)
			key := configString(n, "each_key")
			if key != "" {
				inner[key] = true
				inner[key+"_index"] = true
			}
			v.validateReferencesInNodes(n.EachNodes, nodeIDs, varIDs, inner, res)
		}
		if n.Type == NodeCondition {
			for _, name := range n.OrderedBranches() {
				b, ok := n.Branches[name]
				if !ok {
					continue
				}
				v.validateReferencesInNodes(b.Nodes, nodeIDs, varIDs, scopeKeys, res)
			}
		}
	}
}

func (v *Validator) validateReference(ref reference.Reference, path string, nodeIDs, varIDs, scopeKeys map[string]bool, res *Result) {
	if scopeKeys[ref.Head] {
		return
	}
	if nodeIDs[ref.Head] {
		return
	}
	if !ref.HasTail() && varIDs[ref.Head] {
		return
	}
	v.addErr(res, path, fmt.Sprintf("reference %q does not resolve to an active scope key, node id, or declared variable", ref.Token), CodeInvalidVariableRef)
}

func cloneScope(scope map[string]bool) map[string]bool {
	out := make(map[string]bool, len(scope)+2)
	for k := range scope {
		out[k] = true
	}
	return out
}

// --- Pass 3: Dependency graph -------------------------------------------

func (v *Validator) validateDependencyGraph(f *Flow, res *Result) {
	res.Order = v.validateNodeListOrder(f.Nodes, "nodes", res)
}

func (v *Validator) validateNodeListOrder(nodes []Node, path string, res *Result) []string {
	order, _, err := BuildOrder(nodes)
	if err != nil {
		v.addErr(res, path, err.Error(), CodeCircularDependency)
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Type == NodeForEach {
			v.validateNodeListOrder(n.EachNodes, fmt.Sprintf("%s[%d].each_nodes", path, i), res)
		}
		if n.Type == NodeCondition {
			for _, name := range n.OrderedBranches() {
				b, ok := n.Branches[name]
				if !ok {
					continue
				}
				v.validateNodeListOrder(b.Nodes, fmt.Sprintf("%s[%d].branches[%s].nodes", path, i, name), res)
			}
		}
	}
	return order
}

// --- Pass 4: Provider availability --------------------------------------

func (v *Validator) validateProviders(f *Flow, res *Result) {
	for _, n := range f.AllNodes() {
		category, ok := providerCategory(n.Type)
		if !ok {
			continue
		}
		provider := configString(n, "provider")
		if provider == "" {
			continue
		}
		if !v.Providers.Configured(category, provider) {
			v.addErr(res, fmt.Sprintf("node %s", n.ID), fmt.Sprintf("provider %q is not configured for category %q", provider, category), CodeMissingProviderConfig)
		}
	}
}

func providerCategory(kind NodeKind) (string, bool) {
	switch kind {
	case NodeLLM:
		return "llm", true
	case NodeTextEmbedding:
		return "embedding", true
	case NodeVectorInsert, NodeVectorSearch, NodeVectorUpdate, NodeVectorDelete:
		return "vector", true
	default:
		return "", false
	}
}

// --- Pass 5: Semantic -----------------------------------------------------

func (v *Validator) validateSemantic(f *Flow, res *Result) {
	all := f.AllNodes()
	for _, n := range all {
		if n.Type != NodeCondition {
			continue
		}
		for name, b := range n.Branches {
			if len(b.Nodes) == 0 {
				res.Warnings = append(res.Warnings, &ValidationWarning{
					Path:    fmt.Sprintf("node %s.branches[%s]", n.ID, name),
					Message: "branch has an empty node list",
				})
			}
		}
	}

	count := len(all)
	bucket := "low"
	switch {
	case count >= 50:
		bucket = "high"
	case count >= 10:
		bucket = "medium"
	}
	res.Warnings = append(res.Warnings, &ValidationWarning{
		Message: fmt.Sprintf("flow complexity: %d nodes (%s)", count, bucket),
	})
}

// --- shared helpers --------------------------------------------------------

func (v *Validator) addErr(res *Result, path, msg, code string) {
	res.Errors = append(res.Errors, &ValidationError{Path: path, Message: msg, Code: code})
}

func (v *Validator) requireConfigString(n *Node, path, key string, res *Result) {
	if strings.TrimSpace(configString(n, key)) == "" {
		v.addErr(res, path, fmt.Sprintf("%s node requires config.%s", n.Type, key), CodeMissingRequiredField)
	}
}

func (v *Validator) requireConfigField(n *Node, path, key string, res *Result) {
	if n.Config == nil {
		v.addErr(res, path, fmt.Sprintf("%s node requires config.%s", n.Type, key), CodeMissingRequiredField)
		return
	}
	if _, ok := n.Config[key]; !ok {
		v.addErr(res, path, fmt.Sprintf("%s node requires config.%s", n.Type, key), CodeMissingRequiredField)
	}
}

func configString(n *Node, key string) string {
	if n.Config == nil {
		return ""
	}
	s, _ := n.Config[key].(string)
	return s
}

func hasAnyInputKey(n *Node, keys ...string) bool {
	if n.Input == nil {
		return false
	}
	for _, k := range keys {
		if val, ok := n.Input[k]; ok && val != nil {
			return true
		}
	}
	return false
}
