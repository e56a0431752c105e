package orchestrator

import (
	"context"
	"fmt"

	"github.com/clipmesh/clipmesh/core"
)

// PendingPlan returns the plan awaiting confirmation, or nil. The returned
// plan must be treated as read-only; use UpdatePlanStep and RemovePlanStep to
// edit it.
func (o *Orchestrator) PendingPlan() *core.ExecutionPlan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pendingPlan
}

// UpdatePlanStep merges args into the identified step's arguments. Keys
// present in args overwrite existing values. No schema validation happens
// here; invalid arguments surface when the step executes.
func (o *Orchestrator) UpdatePlanStep(stepID string, args map[string]any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingPlan == nil {
		return fmt.Errorf("[%s] no plan is pending", core.CodeValidation)
	}
	idx := o.pendingPlan.StepByID(stepID)
	if idx < 0 {
		return fmt.Errorf("[%s] plan has no step %q", core.CodeStepNotFound, stepID)
	}
	for k, v := range args {
		o.pendingPlan.Steps[idx].Arguments[k] = v
	}
	o.logger.Debug("orchestrator.plan.step_updated", "plan_id", o.pendingPlan.ID, "step", stepID)
	return nil
}

// RemovePlanStep removes the identified step. Removing the last step cancels
// the whole plan.
func (o *Orchestrator) RemovePlanStep(stepID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingPlan == nil {
		return fmt.Errorf("[%s] no plan is pending", core.CodeValidation)
	}
	idx := o.pendingPlan.StepByID(stepID)
	if idx < 0 {
		return fmt.Errorf("[%s] plan has no step %q", core.CodeStepNotFound, stepID)
	}
	o.pendingPlan.Steps = append(o.pendingPlan.Steps[:idx], o.pendingPlan.Steps[idx+1:]...)
	o.logger.Debug("orchestrator.plan.step_removed", "plan_id", o.pendingPlan.ID, "step", stepID)

	if len(o.pendingPlan.Steps) == 0 {
		o.discardPlanLocked("plan cancelled: all steps removed")
	}
	return nil
}

// CancelPlan discards the pending plan. The only side effect is a history
// note so the provider sees the decision on the next turn.
func (o *Orchestrator) CancelPlan() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingPlan == nil {
		return fmt.Errorf("[%s] no plan is pending", core.CodeValidation)
	}
	o.discardPlanLocked("plan cancelled by user")
	return nil
}

func (o *Orchestrator) discardPlanLocked(note string) {
	o.logger.Info("orchestrator.plan.discarded", "plan_id", o.pendingPlan.ID, "note", note)
	o.pendingPlan = nil
	o.history.Append(core.NewUserMessage("[" + note + "]"))
}

// ConfirmPlan executes the pending plan through the same loop as direct
// mode. The plan is cleared before execution starts: confirmation is consumed
// exactly once, even if execution fails. The plan batch counts as the first
// iteration of the turn.
func (o *Orchestrator) ConfirmPlan(ctx context.Context) *TurnResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pendingPlan == nil {
		return errorResult(core.CodeValidation, "no plan is pending confirmation", nil)
	}
	plan := o.pendingPlan
	o.pendingPlan = nil
	o.logger.Info("orchestrator.plan.confirmed", "plan_id", plan.ID, "steps", len(plan.Steps))

	calls := make([]core.ToolCall, len(plan.Steps))
	for i, s := range plan.Steps {
		calls[i] = s.Call()
	}
	o.history.Append(core.NewUserMessage("[confirmation]"))
	o.history.Append(core.NewAssistantMessage("", calls))

	rec := newRecorder()
	if res := o.executeBatch(ctx, plan.Steps, rec); res != nil {
		return res
	}
	if ctx.Err() != nil {
		return cancelledResult(rec.calls())
	}

	next, fail := o.chatNext(ctx, rec)
	if fail != nil {
		return fail
	}
	return o.runLoop(ctx, next, rec, 1)
}
