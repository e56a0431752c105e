package core

import "time"

// Operation classifies a plan step's effect on the shared document.
type Operation string

const (
	// OpRead marks a step that only inspects the document.
	OpRead Operation = "read"
	// OpWrite marks a step that mutates the document.
	OpWrite Operation = "write"
)

// PlanStep is one node of a not-yet-executed plan. Operation, DependsOn and
// ResourceLocks are optional; when absent the scheduler infers them (see
// package dag). Steps are mutated only by explicit user edits while a plan is
// pending confirmation.
type PlanStep struct {
	ID            string         `json:"id"`
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments"`
	Summary       string         `json:"summary,omitempty"`
	Operation     Operation      `json:"operation,omitempty"`
	DependsOn     []string       `json:"depends_on,omitempty"`
	ResourceLocks []string       `json:"resource_locks,omitempty"`
}

// Call converts the step into the tool call the registry executes.
func (s PlanStep) Call() ToolCall {
	return ToolCall{ID: s.ID, Name: s.ToolName, Arguments: s.Arguments}
}

// ExecutionPlan is the confirmation-mode artifact: a user-reviewable batch of
// proposed steps awaiting confirm or cancel. At most one plan is pending per
// orchestrator instance at any time.
type ExecutionPlan struct {
	ID                  string     `json:"id"`
	OriginalUserMessage string     `json:"original_user_message"`
	CreatedAt           time.Time  `json:"created_at"`
	Steps               []PlanStep `json:"steps"`
}

// NewExecutionPlan materializes a plan from proposed steps, normalizing nil
// argument maps so downstream merging never has to nil-check.
func NewExecutionPlan(userMessage string, steps []PlanStep) *ExecutionPlan {
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = NewID()
		}
		if steps[i].Arguments == nil {
			steps[i].Arguments = map[string]any{}
		}
	}
	return &ExecutionPlan{
		ID:                  NewID(),
		OriginalUserMessage: userMessage,
		CreatedAt:           time.Now().UTC(),
		Steps:               steps,
	}
}

// StepByID returns the index of the step with the given id, or -1.
func (p *ExecutionPlan) StepByID(id string) int {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return i
		}
	}
	return -1
}
