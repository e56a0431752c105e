package core

import "github.com/google/uuid"

// ToolCall is one proposed invocation of a named tool. Calls are produced by
// a provider response or synthesized by the recovery engine; once dispatched
// they are treated as immutable; a retry is a new call carrying the original
// arguments.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Clone returns a copy with its own argument map so a retry can diverge
// without mutating the original call.
func (c ToolCall) Clone() ToolCall {
	args := make(map[string]any, len(c.Arguments))
	for k, v := range c.Arguments {
		args[k] = v
	}
	return ToolCall{ID: c.ID, Name: c.Name, Arguments: args}
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a minimal JSON-Schema object (type/properties/required).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is the uniform outcome of one tool execution. A failed Result
// carries a machine-readable ErrorCode that the recovery engine keys on.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewID generates a unique identifier for calls, steps and plans.
func NewID() string { return uuid.NewString() }
