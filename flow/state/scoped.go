package state

import "sync"

// ScopedRegistry is the delegating overlay a For-Each iteration runs its
// body against (spec §4.8). It never copies the parent registry: variable
// reads/writes pass straight through, only the iteration key, its `_index`
// companion, and node outputs get iteration-local behavior.
type ScopedRegistry struct {
	parent  State
	eachKey string
	indexKey string
	item    any
	index   int

	mu      sync.RWMutex
	outputs map[string]any
}

// NewScopedRegistry builds the overlay for iteration index over item,
// delegating everything else to parent.
func NewScopedRegistry(parent State, eachKey string, item any, index int) *ScopedRegistry {
	return &ScopedRegistry{
		parent:   parent,
		eachKey:  eachKey,
		indexKey: eachKey + "_index",
		item:     item,
		index:    index,
		outputs:  make(map[string]any),
	}
}

// GetVariable returns the current iteration item/index for the scope keys,
// else delegates to the parent.
func (s *ScopedRegistry) GetVariable(id string) (any, bool) {
	switch id {
	case s.eachKey:
		return s.item, true
	case s.indexKey:
		return s.index, true
	default:
		return s.parent.GetVariable(id)
	}
}

// HasVariable reports true for the scope keys, else delegates.
func (s *ScopedRegistry) HasVariable(id string) bool {
	if id == s.eachKey || id == s.indexKey {
		return true
	}
	return s.parent.HasVariable(id)
}

// SetVariable always delegates to the parent: variable mutations inside a
// loop body are globally visible, so append/join accumulate across
// iterations (spec §4.8 point 1).
func (s *ScopedRegistry) SetVariable(id string, value any) error {
	return s.parent.SetVariable(id, value)
}

// GetNodeOutput checks the iteration-local store first, then the parent —
// this is what lets sibling body nodes see earlier body nodes' outputs from
// the *same* iteration without polluting the outer dependency graph.
func (s *ScopedRegistry) GetNodeOutput(id string) (any, bool) {
	s.mu.RLock()
	v, ok := s.outputs[id]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	return s.parent.GetNodeOutput(id)
}

// HasNodeOutput mirrors GetNodeOutput's local-then-parent lookup.
func (s *ScopedRegistry) HasNodeOutput(id string) bool {
	s.mu.RLock()
	_, ok := s.outputs[id]
	s.mu.RUnlock()
	if ok {
		return true
	}
	return s.parent.HasNodeOutput(id)
}

// SetNodeOutput writes to both the local store and the parent: local so
// later nodes in this same iteration observe it immediately, parent so it
// survives after the loop for diagnostics and end-of-flow output
// collection (spec §4.8 point 1).
func (s *ScopedRegistry) SetNodeOutput(id string, value any) {
	s.mu.Lock()
	s.outputs[id] = value
	s.mu.Unlock()
	s.parent.SetNodeOutput(id, value)
}

// Resolve checks scope keys first, then the local output store, then falls
// back to the parent registry — the exact order spec §4.8 point 1 describes
// for resolveExpression inside a For-Each body.
func (s *ScopedRegistry) Resolve(head string, tail []string) (any, bool) {
	switch head {
	case s.eachKey:
		return Navigate(s.item, tail), true
	case s.indexKey:
		return Navigate(s.index, tail), true
	}
	if out, ok := s.GetNodeOutput(head); ok {
		return Navigate(out, outputTail(tail)), true
	}
	return s.parent.Resolve(head, tail)
}
