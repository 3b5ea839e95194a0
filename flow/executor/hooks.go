package executor

import (
	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/registry"
)

// Signal is a lifecycle hook's instruction to the executor: keep going, or
// short-circuit the flow (spec §4.9).
type Signal int

// Hook signals.
const (
	SignalContinue Signal = iota
	SignalStop
)

// Hooks is the lifecycle hook protocol a caller may supply to Run. Every
// field is optional; a nil hook is simply not invoked. A hook's own panic is
// recovered and logged as a warning. A panicking AfterNode counts as
// SignalContinue; a panicking OnError counts as SignalStop, so the node's
// error still fails the flow.
type Hooks struct {
	// BeforeNode runs immediately before a node's handler.
	BeforeNode func(ec registry.ExecContext, node *flow.Node)
	// AfterNode runs after a node's handler succeeds; its signal decides
	// whether the flow proceeds to the next node or stops early.
	AfterNode func(ec registry.ExecContext, node *flow.Node, output any) Signal
	// OnError runs when a node's handler returns an error; its signal decides
	// whether the node is skipped (treating its output as absent) or the
	// flow fails with that error as cause.
	OnError func(ec registry.ExecContext, node *flow.Node, cause error) Signal
	// OnComplete runs once, after the flow finishes (by running out of
	// nodes, or by a stop signal), with the declared output variables.
	OnComplete func(ec registry.ExecContext, outputs map[string]any)
}

// safeBeforeNode invokes h.BeforeNode if set, recovering and logging any
// panic rather than letting it propagate into node execution.
func (h Hooks) safeBeforeNode(ec registry.ExecContext, node *flow.Node) {
	if h.BeforeNode == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logHookPanic(ec, "beforeNode", r)
		}
	}()
	h.BeforeNode(ec, node)
}

// safeAfterNode invokes h.AfterNode if set, defaulting to SignalContinue on
// a panic or when no hook is configured.
func (h Hooks) safeAfterNode(ec registry.ExecContext, node *flow.Node, output any) (signal Signal) {
	if h.AfterNode == nil {
		return SignalContinue
	}
	defer func() {
		if r := recover(); r != nil {
			logHookPanic(ec, "afterNode", r)
			signal = SignalContinue
		}
	}()
	return h.AfterNode(ec, node, output)
}

// safeOnError invokes h.OnError if set, defaulting to SignalStop (propagate
// the error) when no hook is configured or the hook itself panics — a
// failure to observe an error is not a license to ignore it.
func (h Hooks) safeOnError(ec registry.ExecContext, node *flow.Node, cause error) (signal Signal) {
	if h.OnError == nil {
		return SignalStop
	}
	defer func() {
		if r := recover(); r != nil {
			logHookPanic(ec, "onError", r)
			signal = SignalStop
		}
	}()
	return h.OnError(ec, node, cause)
}

// safeOnComplete invokes h.OnComplete if set, recovering any panic.
func (h Hooks) safeOnComplete(ec registry.ExecContext, outputs map[string]any) {
	if h.OnComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logHookPanic(ec, "onComplete", r)
		}
	}()
	h.OnComplete(ec, outputs)
}

// logHookPanic logs a recovered hook panic as a warning.
func logHookPanic(ec registry.ExecContext, hookName string, r any) {
	if ec.Logger != nil {
		ec.Logger.Warnf("executor: %s hook panicked: %v", hookName, r)
	}
}
