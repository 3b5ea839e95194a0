// Package executor drives a validated Flow to completion: it admits runs
// under a global concurrency bound, seeds a state registry from declared
// defaults and caller inputs, walks the topologically ordered node list
// dispatching each node to its registered handler, and honors the
// lifecycle hook protocol around every top-level node (spec §4.9); nodes
// inside CONDITION branches and FOR_EACH bodies run without hooks.
//
// The admission pool is grounded in the teacher's
// evaluation/service/local/pool.go use of github.com/panjf2000/ants/v2: a
// single *ants.PoolWithFunc sized to a caller-supplied concurrency limit,
// fed one job per admitted run, with a sync.WaitGroup backing Shutdown's
// wait for in-flight runs. That wait has no time limit.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/nodes"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/state"
	"github.com/flowforge/flowrun/log"
)

// Executor schedules and runs flow executions.
type Executor struct {
	handlers  *registry.Registry
	providers *provider.Registry
	logger    log.Logger

	pool *ants.PoolWithFunc
	wg   sync.WaitGroup
}

// runJob is submitted to the pool once per admitted flow run.
type runJob struct {
	ctx      context.Context
	flow     *flow.Flow
	inputs   map[string]any
	hooks    Hooks
	order    []string
	runID    string
	resultCh chan runOutcome
}

type runOutcome struct {
	result *Result
	err    error
}

// New builds an Executor with a handler registry populated by
// nodes.RegisterDefaults, an admission pool sized to concurrencyLimit, and
// the given provider registry and logger. logger may be nil, in which case
// hook panics and soft warnings are silently dropped.
func New(providers *provider.Registry, concurrencyLimit int, logger log.Logger) (*Executor, error) {
	if concurrencyLimit <= 0 {
		return nil, fmt.Errorf("executor: concurrency limit must be greater than 0")
	}

	e := &Executor{
		handlers:  registry.NewRegistry(),
		providers: providers,
		logger:    logger,
	}
	nodes.RegisterDefaults(e.handlers, e.runNodeList)

	pool, err := ants.NewPoolWithFunc(concurrencyLimit, e.runPooled)
	if err != nil {
		return nil, fmt.Errorf("executor: failed to create admission pool: %w", err)
	}
	e.pool = pool
	return e, nil
}

// Handlers exposes the node handler registry, primarily so callers can
// register additional or replacement handlers before the first Run.
func (e *Executor) Handlers() *registry.Registry {
	return e.handlers
}

// Run validates f, admits it to the concurrency-bounded pool, and blocks
// until the run completes, ctx is canceled, or admission fails. The
// admission queue itself is unbounded (spec §4.9 "Backpressure"): Invoke
// blocks the caller's goroutine when every pool worker is busy, rather than
// rejecting the run.
func (e *Executor) Run(ctx context.Context, f *flow.Flow, inputs map[string]any, hooks Hooks) (*Result, error) {
	providerSet := flow.ProviderSet(e.providers.Available())
	validation := flow.NewValidatorWithProviders(providerSet).Validate(f)
	if !validation.Valid {
		return nil, fmt.Errorf("executor: flow %s failed validation: %s", f.Name, formatValidationErrors(validation.Errors))
	}
	if e.logger != nil {
		for _, w := range validation.Warnings {
			e.logger.Warnf("executor: flow %s: %s", f.Name, w.String())
		}
	}

	job := &runJob{
		ctx:      ctx,
		flow:     f,
		inputs:   inputs,
		hooks:    hooks,
		order:    validation.Order,
		runID:    uuid.NewString(),
		resultCh: make(chan runOutcome, 1),
	}

	e.wg.Add(1)
	if err := e.pool.Invoke(job); err != nil {
		e.wg.Done()
		return nil, fmt.Errorf("executor: failed to admit flow run: %w", err)
	}

	select {
	case out := <-job.resultCh:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown waits for in-flight runs to finish, then releases the pool.
func (e *Executor) Shutdown() {
	e.wg.Wait()
	e.pool.Release()
}

// runPooled is the function submitted to ants.PoolWithFunc; it always
// finishes its job's resultCh and decrements the WaitGroup, even on panic
// inside execute (surfaced as an error rather than crashing the worker).
func (e *Executor) runPooled(args any) {
	job := args.(*runJob)
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			job.resultCh <- runOutcome{err: fmt.Errorf("executor: flow %s panicked: %v", job.flow.Name, r)}
		}
	}()

	result, err := e.execute(job)
	job.resultCh <- runOutcome{result: result, err: err}
}

// execute runs one flow to completion against a fresh state registry.
func (e *Executor) execute(job *runJob) (*Result, error) {
	start := time.Now()

	files, _ := e.providers.Files()
	reg := state.NewRegistry(job.flow, files)
	if err := reg.SeedInputs(job.inputs); err != nil {
		return nil, fmt.Errorf("executor: failed to seed inputs for flow %s: %w", job.flow.Name, err)
	}

	ec := registry.ExecContext{
		Ctx:       job.ctx,
		FlowID:    job.runID,
		Logger:    e.logger,
		Providers: e.providers,
		State:     reg,
	}

	orderedNodes := make([]flow.Node, 0, len(job.order))
	for _, id := range job.order {
		if n, ok := job.flow.NodeByID(id); ok {
			orderedNodes = append(orderedNodes, *n)
		}
	}

	_, stopNodeID, err := e.runNodes(ec, orderedNodes, job.hooks)
	outputs := reg.Outputs(job.flow.Output)
	ec.Logger = e.logger
	job.hooks.safeOnComplete(ec, outputs)

	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return &Result{
			Success:         false,
			FlowID:          job.flow.Name,
			RunID:           job.runID,
			ExecutionTimeMS: elapsed,
			Outputs:         outputs,
			Error:           err,
			StoppedEarly:    stopNodeID != "",
			StoppedAtNodeID: stopNodeID,
		}, err
	}
	return &Result{
		Success:         true,
		FlowID:          job.flow.Name,
		RunID:           job.runID,
		ExecutionTimeMS: elapsed,
		Outputs:         outputs,
		StoppedEarly:    stopNodeID != "",
		StoppedAtNodeID: stopNodeID,
	}, nil
}

// runNodeList adapts runNodes to the nodes.BranchExecutor shape CONDITION
// and FOR_EACH handlers use to recurse into their nested bodies.
func (e *Executor) runNodeList(ec registry.ExecContext, body []flow.Node) ([]map[string]any, error) {
	order, _, err := flow.BuildOrder(body)
	if err != nil {
		return nil, err
	}
	ordered := make([]flow.Node, 0, len(order))
	for _, id := range order {
		for i := range body {
			if body[i].ID == id {
				ordered = append(ordered, body[i])
				break
			}
		}
	}
	results, _, err := e.runNodes(ec, ordered, Hooks{})
	return results, err
}

// runNodes walks nodes in order, dispatching each to its registered handler
// and applying the lifecycle hook protocol around it (spec §4.9). It
// returns the collected per-node outputs, the id of the node a stop signal
// fired at (empty if the flow ran to completion), and the first
// flow-ending error.
func (e *Executor) runNodes(ec registry.ExecContext, ordered []flow.Node, hooks Hooks) ([]map[string]any, string, error) {
	results := make([]map[string]any, 0, len(ordered))

	for i := range ordered {
		node := &ordered[i]

		select {
		case <-ec.Ctx.Done():
			return results, "", ec.Ctx.Err()
		default:
		}

		hooks.safeBeforeNode(ec, node)

		output, err := e.handlers.Execute(ec, node)
		if err != nil {
			execErr := &flow.ExecutionError{NodeID: node.ID, Cause: err}
			if hooks.safeOnError(ec, node, execErr) == SignalStop {
				return results, node.ID, execErr
			}
			// continue: the node produced no output, so later references to
			// it resolve to undefined (spec §7 "Propagation").
			continue
		}

		ec.State.SetNodeOutput(node.ID, output)
		entry := map[string]any{"node_id": node.ID, "output": output}
		results = append(results, entry)

		if hooks.safeAfterNode(ec, node, output) == SignalStop {
			return results, node.ID, nil
		}
	}

	return results, "", nil
}

// formatValidationErrors renders a short multi-error summary for the
// admission-time validation failure message.
func formatValidationErrors(errs []*flow.ValidationError) string {
	if len(errs) == 0 {
		return "unknown validation failure"
	}
	msg := errs[0].Error()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(errs)-1)
	}
	return msg
}
