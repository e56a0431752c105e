package core

import "time"

// Message roles. The system prompt is never stored in history; the
// orchestrator prepends it fresh on every provider request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one role-tagged entry of the conversation history. Tool-role
// messages carry the originating call id and tool name so providers can
// correlate results with the assistant turn that requested them.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant message, optionally carrying the
// tool calls the assistant proposed alongside (or instead of) text.
func NewAssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolMessage records the outcome of one executed tool call.
func NewToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName, Timestamp: time.Now().UTC()}
}

// History is an append-only, size-bounded message sequence. When the bound is
// exceeded the oldest entries are dropped first. A zero or negative limit
// means unbounded. History is not safe for concurrent use; the orchestrator
// guards it with its own mutex.
type History struct {
	limit    int
	messages []Message
}

// NewHistory creates a history bounded to the most recent limit messages.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Append adds a message, evicting the oldest entries past the bound.
func (h *History) Append(msgs ...Message) {
	h.messages = append(h.messages, msgs...)
	if h.limit > 0 && len(h.messages) > h.limit {
		h.messages = h.messages[len(h.messages)-h.limit:]
	}
}

// DropLast removes the most recent n messages. Used to roll back a user turn
// when the provider is unavailable so the conversation state is consistent
// with the turn never having happened.
func (h *History) DropLast(n int) {
	if n > len(h.messages) {
		n = len(h.messages)
	}
	h.messages = h.messages[:len(h.messages)-n]
}

// Messages returns a copy of the current window.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int { return len(h.messages) }
