package dag

import (
	"context"
	"fmt"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/logging"
	"golang.org/x/sync/errgroup"
)

// Runner executes one node's tool call and returns its result. The runner is
// responsible for per-call timeout wrapping (see tool.Registry.
// ExecuteWithTimeout) and for any recovery remediation; the executor only
// schedules. Runners must respect ctx cancellation.
type Runner func(ctx context.Context, node *Node) core.Result

// outcome pairs a finished node with its result on the completion channel.
type outcome struct {
	node   *Node
	result core.Result
}

// Executor drives one batch of nodes to completion: every ready node is
// dispatched in its own goroutine, locks serialize contending nodes, and
// readiness is re-evaluated after each completion. No artificial concurrency
// cap is imposed; a host can bound parallelism inside its Runner if needed.
type Executor struct {
	logger logging.Logger
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the scheduler's logger.
func WithLogger(l logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor constructs an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes the batch and returns one result per dispatched node, keyed by
// step id. A node's failure never halts siblings; it only gates dependents
// through the terminal-state rule. When ctx is cancelled, in-flight nodes are
// allowed to finish and their results are still recorded, but nothing new is
// dispatched and ctx.Err() is returned alongside the partial results.
//
// Given an acyclic graph Run always terminates; "nothing ready, nothing
// running, work remains" cannot happen, but it is still detected and reported
// as a SCHEDULER_STALLED invariant violation rather than hanging.
func (e *Executor) Run(ctx context.Context, nodes []*Node, run Runner) (map[string]core.Result, error) {
	results := make(map[string]core.Result, len(nodes))
	if len(nodes) == 0 {
		return results, nil
	}

	states := make(map[string]NodeState, len(nodes))
	for _, n := range nodes {
		states[n.ID()] = StatePending
	}
	held := make(LockSet)
	runningCount := 0
	done := make(chan outcome, len(nodes))

	var g errgroup.Group
	defer func() { _ = g.Wait() }() // runners report through the channel

	complete := func(o outcome) {
		held.Release(o.node.ResourceLocks)
		runningCount--
		if o.result.Success {
			states[o.node.ID()] = StateCompleted
		} else {
			states[o.node.ID()] = StateFailed
		}
		results[o.node.ID()] = o.result
		e.logger.Debug("dag.node.finished",
			"step", o.node.ID(),
			"tool", o.node.Step.ToolName,
			"state", states[o.node.ID()].String(),
		)
	}

	for {
		cancelled := ctx.Err() != nil

		if !cancelled {
			for _, n := range ReadySet(nodes, states, held) {
				// ReadySet is computed against the locks held at the start of
				// this wave; re-check as they are acquired so two contending
				// nodes in one wave cannot both dispatch.
				if held.Holds(n.ResourceLocks) {
					continue
				}
				n := n
				states[n.ID()] = StateRunning
				held.Acquire(n.ResourceLocks)
				runningCount++
				e.logger.Debug("dag.node.dispatch",
					"step", n.ID(),
					"tool", n.Step.ToolName,
					"operation", string(n.Operation),
					"locks", n.ResourceLocks,
				)
				g.Go(func() error {
					done <- outcome{node: n, result: run(ctx, n)}
					return nil
				})
			}
		}

		if runningCount == 0 {
			if cancelled {
				return results, ctx.Err()
			}
			remaining := 0
			for _, st := range states {
				if !st.Terminal() {
					remaining++
				}
			}
			if remaining == 0 {
				return results, nil
			}
			return results, fmt.Errorf("[%s] %d nodes remain but nothing is ready or running", core.CodeSchedulerStalled, remaining)
		}

		complete(<-done)
	}
}
