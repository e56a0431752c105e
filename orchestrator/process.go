package orchestrator

import (
	"context"
	"fmt"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/provider"
)

// Process runs one conversation turn. If a plan is already pending the call
// is rejected immediately with status planned and no state change; the
// pending plan must be confirmed or cancelled first. Otherwise the user
// message is appended, the provider consulted, and either a final answer is
// returned, a plan is materialized (planning mode), or the proposed calls are
// executed directly.
func (o *Orchestrator) Process(ctx context.Context, userMessage string) *TurnResult {
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

	o.history.Append(core.NewUserMessage(userMessage))

	if !o.provider.IsAvailable(ctx) {
		o.history.DropLast(1) // this turn never happened
		return errorResult(core.CodeProviderUnavailable,
			fmt.Sprintf("provider %s is not available", o.provider.Name()), nil)
	}

	resp, err := o.provider.Chat(ctx, o.requestMessages(), o.registry.Definitions())
	if err != nil {
		o.history.DropLast(1)
		if ctx.Err() != nil {
			// Cancellation suppresses fallback paths; the request is not retried.
			return cancelledResult(nil)
		}
		return errorResult(core.CodeProviderError, err.Error(), nil)
	}
	if resp.FinishReason == provider.FinishError {
		o.history.DropLast(1)
		return errorResult(core.CodeProviderError, "provider signalled an error finish", nil)
	}

	if len(resp.ToolCalls) == 0 {
		o.history.Append(core.NewAssistantMessage(resp.Content, nil))
		return finalize(resp, nil)
	}

	if o.planningMode {
		// History reflects only what actually executed: the assistant turn
		// with its tool calls is appended on confirmation, not here.
		plan := core.NewExecutionPlan(userMessage, stepsFromCalls(resp.ToolCalls))
		o.pendingPlan = plan
		o.logger.Info("orchestrator.plan.created", "plan_id", plan.ID, "steps", len(plan.Steps))
		return &TurnResult{
			Status:  StatusPlanned,
			Message: fmt.Sprintf("proposed a %d-step plan; awaiting confirmation", len(plan.Steps)),
			Plan:    plan,
		}
	}

	return o.runLoop(ctx, resp, newRecorder(), 0)
}

// runLoop is the execution loop shared by direct mode and post-confirmation
// mode: execute the current batch through the scheduler, feed results back to
// the provider, and repeat until no further calls are proposed or the
// iteration ceiling is reached.
func (o *Orchestrator) runLoop(ctx context.Context, resp *provider.Response, rec *recorder, iter int) *TurnResult {
	for ; ; iter++ {
		if len(resp.ToolCalls) == 0 {
			return finalize(resp, rec)
		}
		if iter >= o.maxIterations {
			break
		}

		o.history.Append(core.NewAssistantMessage(resp.Content, resp.ToolCalls))

		if res := o.executeBatch(ctx, stepsFromCalls(resp.ToolCalls), rec); res != nil {
			return res
		}
		if ctx.Err() != nil {
			return cancelledResult(rec.calls())
		}

		next, fail := o.chatNext(ctx, rec)
		if fail != nil {
			return fail
		}
		resp = next
	}

	o.logger.Warn("orchestrator.iteration_limit", "max_iterations", o.maxIterations)
	return errorResult(core.CodeIterationLimit,
		fmt.Sprintf("iteration ceiling reached after %d rounds of tool execution", o.maxIterations),
		rec.calls())
}

// chatNext issues the follow-up provider request seeded with the updated
// history. A non-nil TurnResult ends the turn.
func (o *Orchestrator) chatNext(ctx context.Context, rec *recorder) (*provider.Response, *TurnResult) {
	next, err := o.provider.Chat(ctx, o.requestMessages(), o.registry.Definitions())
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledResult(rec.calls())
		}
		return nil, errorResult(core.CodeProviderError, err.Error(), rec.calls())
	}
	if next.FinishReason == provider.FinishError {
		return nil, errorResult(core.CodeProviderError, "provider signalled an error finish", rec.calls())
	}
	return next, nil
}

// stepsFromCalls converts a provider batch into plan steps; operation,
// dependencies and locks are resolved by the scheduler.
func stepsFromCalls(calls []core.ToolCall) []core.PlanStep {
	steps := make([]core.PlanStep, len(calls))
	for i, c := range calls {
		args := c.Arguments
		if args == nil {
			args = map[string]any{}
		}
		id := c.ID
		if id == "" {
			id = core.NewID()
		}
		steps[i] = core.PlanStep{ID: id, ToolName: c.Name, Arguments: args}
	}
	return steps
}
