package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/dag"
	"github.com/clipmesh/clipmesh/provider"
)

// recorder accumulates executed calls across a turn. Nodes run concurrently,
// so appends are synchronized; order is dispatch-completion order. The failed
// flag tracks final node outcomes only: an attempt that a recovery retry
// later repaired stays in the call list but does not fail the turn.
type recorder struct {
	mu     sync.Mutex
	items  []ExecutedCall
	failed bool
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) add(call core.ToolCall, res core.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, ExecutedCall{Call: call, Result: res})
}

func (r *recorder) calls() []ExecutedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutedCall, len(r.items))
	copy(out, r.items)
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *recorder) markFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
}

func (r *recorder) anyFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// executeBatch builds the dependency graph for one batch and drains it
// through the scheduler. It returns a non-nil TurnResult only when the whole
// turn must end (construction error or scheduler invariant violation); tool
// failures are recorded and left to the finalization policy. One tool-result
// history entry is appended per executed call, including recovery
// prerequisites and retries.
func (o *Orchestrator) executeBatch(ctx context.Context, steps []core.PlanStep, rec *recorder) *TurnResult {
	before := rec.len()

	nodes, err := dag.BuildGraph(steps, o.classify)
	if err != nil {
		code := core.CodeValidation
		var be *dag.BuildError
		if errors.As(err, &be) {
			code = be.Code
		}
		return errorResult(code, err.Error(), rec.calls())
	}

	results, runErr := o.executor.Run(ctx, nodes, func(ctx context.Context, n *dag.Node) core.Result {
		return o.executeWithRecovery(ctx, n.Step.Call(), rec)
	})
	for _, res := range results {
		if !res.Success {
			rec.markFailed()
		}
	}

	// History reflects every call that actually ran in this batch.
	for _, ec := range rec.calls()[before:] {
		o.history.Append(core.NewToolMessage(ec.Call.ID, ec.Call.Name, ec.Result.Message))
	}

	if runErr != nil && ctx.Err() == nil {
		return errorResult(core.CodeSchedulerStalled, runErr.Error(), rec.calls())
	}
	return nil
}

// executeWithRecovery runs one call and, on failure, consults the recovery
// engine: prerequisites run sequentially (each itself subject to recovery),
// then the retry call is substituted into the same node and attempted once.
// The loop continues while policies keep matching; every policy carries its
// own retry ceiling, so resolution eventually returns nil and the failure
// stands.
func (o *Orchestrator) executeWithRecovery(ctx context.Context, call core.ToolCall, rec *recorder) core.Result {
	res := o.registry.ExecuteWithTimeout(ctx, call.Name, call.Arguments, o.toolTimeout)
	rec.add(call, res)

	for retries := 0; !res.Success; retries++ {
		if o.recovery == nil || ctx.Err() != nil {
			break
		}
		dec := o.recovery.Resolve(call, res.ErrorCode, retries)
		if dec == nil {
			break
		}
		o.logger.Info("orchestrator.recovery",
			"policy", dec.PolicyID,
			"tool", call.Name,
			"error_code", res.ErrorCode,
			"retry", retries,
			"reason", dec.Reason,
		)

		for _, pre := range dec.PrerequisiteCalls {
			o.executeWithRecovery(ctx, pre, rec)
		}

		if dec.Delay > 0 && !sleepCtx(ctx, dec.Delay) {
			break
		}

		call = dec.RetryCall
		res = o.registry.ExecuteWithTimeout(ctx, call.Name, call.Arguments, o.toolTimeout)
		rec.add(call, res)
	}
	return res
}

// RunSteps executes an already-resolved batch of steps without consulting
// the provider. Catalogue workflows use this path: their steps are fully
// specified ahead of time, so the turn is a single batch through the
// scheduler with the usual recovery behavior.
func (o *Orchestrator) RunSteps(ctx context.Context, label string, steps []core.PlanStep) *TurnResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingPlan != nil {
		return &TurnResult{
			Status:    StatusPlanned,
			Message:   "a plan is already pending confirmation; confirm or cancel it first",
			ErrorCode: core.CodePlanPending,
			Plan:      o.pendingPlan,
		}
	}

	plan := core.NewExecutionPlan(label, steps)
	calls := make([]core.ToolCall, len(plan.Steps))
	for i, s := range plan.Steps {
		calls[i] = s.Call()
	}
	o.history.Append(core.NewUserMessage(label))
	o.history.Append(core.NewAssistantMessage("", calls))

	rec := newRecorder()
	if res := o.executeBatch(ctx, plan.Steps, rec); res != nil {
		return res
	}
	if ctx.Err() != nil {
		return cancelledResult(rec.calls())
	}
	return finalize(&provider.Response{FinishReason: provider.FinishStop}, rec)
}

// sleepCtx waits d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
