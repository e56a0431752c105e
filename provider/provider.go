// Package provider defines the chat-model contract the orchestrator drives:
// given a bounded message history and a tool catalogue, return text and/or a
// batch of proposed tool calls. Concrete adapters for Anthropic and OpenAI
// live in subpackages; ScriptedProvider supports tests and offline demos.
package provider

import (
	"context"

	"github.com/clipmesh/clipmesh/core"
)

// Finish reasons reported by providers. FinishError aborts the turn
// regardless of any content in the response.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishError     = "error"
)

// Response is the normalized provider output for one request.
type Response struct {
	Content      string          `json:"content"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"`
}

// Provider is the request/response contract with the language model.
// IsAvailable is checked once per turn before any request so an unreachable
// backend fails fast instead of mid-conversation.
type Provider interface {
	// Name identifies the provider for logging.
	Name() string

	// IsAvailable reports whether the backend can currently serve requests.
	IsAvailable(ctx context.Context) bool

	// Chat issues one request with the full bounded history and tool
	// catalogue. A transport failure is returned as an error; a model-level
	// failure surfaces as FinishError in the response.
	Chat(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (*Response, error)
}
