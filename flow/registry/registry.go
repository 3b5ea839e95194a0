// Package registry dispatches a Node's kind tag to the Handler that
// executes it — the "one polymorphic handler per node kind" component
// (spec §2 C5). It is grounded in the teacher's dsl/registry.Registry
// (a mutex-guarded map keyed by component name with Register/Get/Has),
// narrowed here to the closed NodeKind enum this spec defines instead of an
// open, string-named component namespace.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/state"
	"github.com/flowforge/flowrun/log"
)

// ExecContext bundles what a node Handler needs to run: the state view to
// read/write, the owning flow's id, a logger, and the wired provider
// clients. This is spec §4.9's "context bundle (registry, flowId, logger,
// provider config)".
type ExecContext struct {
	Ctx       context.Context
	FlowID    string
	Logger    log.Logger
	Providers *provider.Registry
	State     state.State
}

// Handler executes a single node kind against an ExecContext, returning the
// value recorded as that node's output.
type Handler interface {
	Execute(ec ExecContext, node *flow.Node) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ec ExecContext, node *flow.Node) (any, error)

// Execute calls f.
func (f HandlerFunc) Execute(ec ExecContext, node *flow.Node) (any, error) {
	return f(ec, node)
}

// Registry maps a NodeKind to the Handler that executes it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[flow.NodeKind]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[flow.NodeKind]Handler)}
}

// Register wires handler for kind, replacing any previous registration.
func (r *Registry) Register(kind flow.NodeKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Get returns the handler registered for kind, if any.
func (r *Registry) Get(kind flow.NodeKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Has reports whether kind has a registered handler.
func (r *Registry) Has(kind flow.NodeKind) bool {
	_, ok := r.Get(kind)
	return ok
}

// Execute dispatches node to its registered handler.
func (r *Registry) Execute(ec ExecContext, node *flow.Node) (any, error) {
	h, ok := r.Get(node.Type)
	if !ok {
		return nil, fmt.Errorf("registry: no handler registered for node type %q", node.Type)
	}
	return h.Execute(ec, node)
}
