package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_BoundDropsOldestFirst(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(NewUserMessage(fmt.Sprintf("m%d", i)))
	}

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m4", msgs[2].Content)
}

func TestHistory_ZeroLimitIsUnbounded(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 100; i++ {
		h.Append(NewUserMessage("m"))
	}
	assert.Equal(t, 100, h.Len())
}

func TestHistory_DropLast(t *testing.T) {
	h := NewHistory(10)
	h.Append(NewUserMessage("a"), NewUserMessage("b"))
	h.DropLast(1)
	require.Equal(t, 1, h.Len())
	assert.Equal(t, "a", h.Messages()[0].Content)

	// Over-dropping clears without panicking.
	h.DropLast(5)
	assert.Equal(t, 0, h.Len())
}

func TestHistory_MessagesIsACopy(t *testing.T) {
	h := NewHistory(10)
	h.Append(NewUserMessage("a"))
	msgs := h.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "a", h.Messages()[0].Content)
}

func TestMessageConstructors(t *testing.T) {
	u := NewUserMessage("hi")
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.Timestamp.IsZero())

	calls := []ToolCall{{ID: "c", Name: "t"}}
	a := NewAssistantMessage("", calls)
	assert.Equal(t, RoleAssistant, a.Role)
	assert.Equal(t, calls, a.ToolCalls)

	m := NewToolMessage("c", "trim_clip", "done")
	assert.Equal(t, RoleTool, m.Role)
	assert.Equal(t, "c", m.ToolCallID)
	assert.Equal(t, "trim_clip", m.ToolName)
}

func TestToolCallClone(t *testing.T) {
	orig := ToolCall{ID: "c", Name: "t", Arguments: map[string]any{"x": 1}}
	clone := orig.Clone()
	clone.Arguments["x"] = 2
	assert.Equal(t, 1, orig.Arguments["x"])
}

func TestNewExecutionPlan_Normalizes(t *testing.T) {
	plan := NewExecutionPlan("tidy up", []PlanStep{
		{ToolName: "add_clip"},
		{ID: "explicit", ToolName: "trim_clip", Arguments: map[string]any{"start": 1.0}},
	})

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "tidy up", plan.OriginalUserMessage)
	require.Len(t, plan.Steps, 2)

	assert.NotEmpty(t, plan.Steps[0].ID, "missing step ids are assigned")
	assert.NotNil(t, plan.Steps[0].Arguments, "nil argument maps are normalized")
	assert.Equal(t, "explicit", plan.Steps[1].ID)

	assert.Equal(t, 0, plan.StepByID(plan.Steps[0].ID))
	assert.Equal(t, -1, plan.StepByID("missing"))
}
