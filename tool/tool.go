// Package tool implements the tool calling subsystem that lets the
// orchestrator invoke structured capabilities (timeline queries, document
// mutations, side-effects) with schema validated arguments and consistent
// error handling.
package tool

import (
	"context"
	"fmt"
)

// Tool defines one executable capability exposed to the model.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully (prefer *ToolError with a machine code)
//   - Be thread-safe; the scheduler runs read-classified tools concurrently
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description returns a human-readable description provided to the model
	// so it understands when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-parsed arguments. The context
	// carries the per-call deadline imposed by the scheduler.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution. Code is the
// machine-readable key the recovery engine matches policies against.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Output lets a tool control both the user-visible message and the structured
// payload of a successful result. Tools returning any other value get a
// generic success message with the value attached as Data.
type Output struct {
	Message string
	Data    any
}
