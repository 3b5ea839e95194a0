// Package state implements the per-flow State Registry: two mappings
// (variable id -> value, node id -> output) with type-validated writes, and
// a scoped overlay used by the For-Each executor for iteration-local
// bindings.
package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
)

// State is the interface node executors and the variable resolver depend
// on. Both Registry and ScopedRegistry implement it, so a For-Each body
// cannot tell whether it is running against the flow-level registry or an
// iteration's scoped view.
type State interface {
	GetVariable(id string) (any, bool)
	HasVariable(id string) bool
	SetVariable(id string, value any) error
	GetNodeOutput(id string) (any, bool)
	HasNodeOutput(id string) bool
	SetNodeOutput(id string, value any)
	// Resolve implements the head+tail navigation order from spec §3:
	// node output beats variable when both exist, then descends tail
	// through the resolved value.
	Resolve(head string, tail []string) (any, bool)
}

// Registry is the flow-level State Registry (spec §4.3).
type Registry struct {
	mu            sync.RWMutex
	vars          map[string]any
	outputs       map[string]any
	declaredTypes map[string]flow.VariableType
	files         provider.FileStore
}

// NewRegistry builds a Registry seeded with f's declared variable defaults.
// files may be nil if no `file`-typed variables are in play; a nil store
// causes SetVariable to fail loudly the first time one is needed, rather
// than silently ignoring it.
func NewRegistry(f *flow.Flow, files provider.FileStore) *Registry {
	r := &Registry{
		vars:          make(map[string]any, len(f.Variables)),
		outputs:       make(map[string]any),
		declaredTypes: make(map[string]flow.VariableType, len(f.Variables)),
		files:         files,
	}
	for _, decl := range f.Variables {
		r.declaredTypes[decl.ID] = decl.Type
		if decl.Default != nil {
			r.vars[decl.ID] = decl.Default
		}
	}
	return r
}

// SeedInputs overlays caller-supplied inputs on top of declared defaults,
// type-validating each write the same way SetVariable does.
func (r *Registry) SeedInputs(inputs map[string]any) error {
	for id, value := range inputs {
		if err := r.SetVariable(id, value); err != nil {
			return err
		}
	}
	return nil
}

// GetVariable returns the current value of variable id.
func (r *Registry) GetVariable(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vars[id]
	return v, ok
}

// HasVariable reports whether variable id currently has a value.
func (r *Registry) HasVariable(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.vars[id]
	return ok
}

// SetVariable writes value to variable id, type-validating against its
// declaration if one exists (spec §4.3).
func (r *Registry) SetVariable(id string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	declType, hasDecl := r.declaredTypes[id]
	if hasDecl && declType != "" {
		coerced, err := r.validateType(id, declType, value)
		if err != nil {
			return err
		}
		value = coerced
	}
	r.vars[id] = value
	return nil
}

// validateType enforces a declared type exactly, per spec §4.3's "type tags
// are enforced exactly" rule, with the File collaborator auto-registration
// carve-out for `file`-typed variables.
func (r *Registry) validateType(id string, t flow.VariableType, value any) (any, error) {
	switch t {
	case flow.TypeString:
		if _, ok := value.(string); !ok {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
	case flow.TypeNumber:
		if !isNumber(value) {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
	case flow.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
	case flow.TypeArray:
		if _, ok := value.([]any); !ok {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
	case flow.TypeObject:
		if _, isArray := value.([]any); isArray {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
		if _, ok := value.(map[string]any); !ok {
			return nil, &flow.TypeError{VariableID: id, Expected: t, Got: value}
		}
	case flow.TypeFile:
		return r.registerFileIfNeeded(id, value)
	}
	return value, nil
}

func (r *Registry) registerFileIfNeeded(id string, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		// Already a handle id (or other non-string form) carried through;
		// leave it untouched.
		return value, nil
	}
	if r.files != nil && r.files.HasFile(s) {
		return s, nil
	}
	if r.files == nil {
		return nil, fmt.Errorf("state: variable %s is type file but no file store is configured", id)
	}
	handle, err := r.files.RegisterFile(context.Background(), s)
	if err != nil {
		return nil, fmt.Errorf("state: failed to register file for variable %s: %w", id, err)
	}
	return handle.ID, nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	default:
		return false
	}
}

// GetNodeOutput returns the recorded output of node id.
func (r *Registry) GetNodeOutput(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.outputs[id]
	return v, ok
}

// HasNodeOutput reports whether node id has recorded an output.
func (r *Registry) HasNodeOutput(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outputs[id]
	return ok
}

// SetNodeOutput records node id's output.
func (r *Registry) SetNodeOutput(id string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[id] = value
}

// Resolve implements the base-registry resolution order: node output beats
// variable (spec §3), then descends tail. A node-output reference's tail
// always starts with the literal "output" segment (e.g.
// {{node.output.field}}); that segment names the reference kind, not a key
// within the stored value, so it is stripped before navigating.
func (r *Registry) Resolve(head string, tail []string) (any, bool) {
	if out, ok := r.GetNodeOutput(head); ok {
		return Navigate(out, outputTail(tail)), true
	}
	if v, ok := r.GetVariable(head); ok {
		return Navigate(v, tail), true
	}
	return nil, false
}

// outputTail strips a leading "output" segment from a node-output
// reference's tail, so {{node.output}} (tail == ["output"]) yields the
// whole output value and {{node.output.field}} navigates into it.
func outputTail(tail []string) []string {
	if len(tail) > 0 && tail[0] == "output" {
		return tail[1:]
	}
	return tail
}

// Outputs reads the current value of each declared output variable id,
// per spec §4.9 ("for each declared output id, read the corresponding
// variable from the registry, not node output").
func (r *Registry) Outputs(ids []string) map[string]any {
	out := make(map[string]any, len(ids))
	for _, id := range ids {
		if v, ok := r.GetVariable(id); ok {
			out[id] = v
		}
	}
	return out
}

// Navigate descends a dotted path of map keys and slice indices into value,
// returning nil if any segment cannot be resolved. It is exported so the
// Update-Variable operation family (extract/pick/omit/map/filter) can reuse
// the same nested-lookup semantics used by reference resolution.
func Navigate(value any, tail []string) any {
	cur := value
	for _, seg := range tail {
		switch v := cur.(type) {
		case map[string]any:
			cur = v[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			cur = v[idx]
		default:
			return nil
		}
	}
	return cur
}
