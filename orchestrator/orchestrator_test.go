package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/provider"
	"github.com/clipmesh/clipmesh/recovery"
	"github.com/clipmesh/clipmesh/timeline"
	"github.com/clipmesh/clipmesh/tool"
)

type fixture struct {
	provider *provider.ScriptedProvider
	registry *tool.Registry
	doc      *timeline.Document
	orch     *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	doc := timeline.NewDocument("test")
	reg := tool.NewRegistry()
	timeline.RegisterTools(reg, doc)
	p := provider.NewScriptedProvider("scripted")
	opts = append([]Option{WithRecovery(recovery.DefaultEngine())}, opts...)
	return &fixture{
		provider: p,
		registry: reg,
		doc:      doc,
		orch:     New(p, reg, opts...),
	}
}

func toolCallResponse(content string, calls ...core.ToolCall) provider.Response {
	return provider.Response{Content: content, ToolCalls: calls, FinishReason: provider.FinishToolCalls}
}

func stopResponse(content string) provider.Response {
	return provider.Response{Content: content, FinishReason: provider.FinishStop}
}

func addClipCall(id, name string, start, end float64) core.ToolCall {
	return core.ToolCall{ID: id, Name: "add_clip", Arguments: map[string]any{
		"track": "V1", "name": name, "start": start, "end": end,
	}}
}

func TestProcess_NoToolCalls(t *testing.T) {
	f := newFixture(t)
	f.provider.Enqueue(stopResponse("nothing to do"))

	res := f.orch.Process(context.Background(), "hello")
	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Success)
	assert.Equal(t, "nothing to do", res.Message)

	// History: user turn plus assistant answer.
	hist := f.orch.History()
	require.Len(t, hist, 2)
	assert.Equal(t, core.RoleUser, hist[0].Role)
	assert.Equal(t, core.RoleAssistant, hist[1].Role)
}

func TestProcess_SystemPromptPrependedNotStored(t *testing.T) {
	f := newFixture(t, WithSystemPrompt("be terse"))
	f.provider.Enqueue(stopResponse("ok"))

	f.orch.Process(context.Background(), "hello")

	reqs := f.provider.Requests()
	require.Len(t, reqs, 1)
	require.NotEmpty(t, reqs[0])
	assert.Equal(t, core.RoleSystem, reqs[0][0].Role)
	assert.Equal(t, "be terse", reqs[0][0].Content)

	for _, m := range f.orch.History() {
		assert.NotEqual(t, core.RoleSystem, m.Role)
	}
}

func TestProcess_ExecutesToolCalls(t *testing.T) {
	f := newFixture(t)
	f.provider.Enqueue(
		toolCallResponse("", addClipCall("c1", "intro", 0, 10)),
		stopResponse("clip added"),
	)

	res := f.orch.Process(context.Background(), "add an intro clip")
	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Success)
	require.Len(t, res.ToolResults, 1)
	assert.True(t, res.ToolResults[0].Result.Success)
	assert.Len(t, f.doc.Clips(), 1)

	// History: user, assistant-with-calls, tool result, final assistant.
	hist := f.orch.History()
	require.Len(t, hist, 4)
	assert.Equal(t, core.RoleTool, hist[2].Role)
	assert.Equal(t, "c1", hist[2].ToolCallID)
}

func TestProcess_ParallelBatchSerializesWrites(t *testing.T) {
	f := newFixture(t)
	f.provider.Enqueue(
		toolCallResponse("",
			addClipCall("c1", "a", 0, 5),
			addClipCall("c2", "b", 5, 10),
			core.ToolCall{ID: "c3", Name: "list_clips", Arguments: map[string]any{}},
		),
		stopResponse("done"),
	)

	res := f.orch.Process(context.Background(), "build the timeline")
	assert.True(t, res.Success)
	assert.Len(t, res.ToolResults, 3)
	assert.Len(t, f.doc.Clips(), 2)
}

func TestProcess_ProviderUnavailableRollsBack(t *testing.T) {
	f := newFixture(t)
	f.provider.SetAvailable(false)

	res := f.orch.Process(context.Background(), "hello")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, core.CodeProviderUnavailable, res.ErrorCode)
	assert.Empty(t, f.orch.History(), "the failed turn leaves no trace")
}

func TestProcess_IterationCeiling(t *testing.T) {
	f := newFixture(t, WithMaxIterations(2))
	// The provider proposes a read every round and never stops.
	infoCall := func(id string) core.ToolCall {
		return core.ToolCall{ID: id, Name: "get_timeline_info", Arguments: map[string]any{}}
	}
	f.provider.Enqueue(
		toolCallResponse("", infoCall("c1")),
		toolCallResponse("", infoCall("c2")),
		toolCallResponse("", infoCall("c3")),
	)

	res := f.orch.Process(context.Background(), "loop forever")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, core.CodeIterationLimit, res.ErrorCode)
	// Results accumulated before the ceiling are still reported.
	assert.Len(t, res.ToolResults, 2)
}

func TestProcess_RecoveryBootstrapsTranscript(t *testing.T) {
	f := newFixture(t)
	_, err := f.doc.AddClip("V1", "a", 0, 10)
	require.NoError(t, err)

	// cut_silences fails with MISSING_TRANSCRIPT; the recovery policy injects
	// generate_transcript and retries, so the turn succeeds end to end.
	f.provider.Enqueue(
		toolCallResponse("", core.ToolCall{ID: "c1", Name: "cut_silences", Arguments: map[string]any{"min_duration": 0.5}}),
		stopResponse("tightened"),
	)

	res := f.orch.Process(context.Background(), "tighten the edit")
	assert.True(t, res.Success, res.Message)

	// Executed calls: the failed cut, the prerequisite, the successful retry.
	require.Len(t, res.ToolResults, 3)
	assert.False(t, res.ToolResults[0].Result.Success)
	assert.Equal(t, "generate_transcript", res.ToolResults[1].Call.Name)
	assert.Equal(t, "cut_silences", res.ToolResults[2].Call.Name)
	assert.True(t, res.ToolResults[2].Result.Success)

	// One tool history entry per executed call.
	var toolMsgs int
	for _, m := range f.orch.History() {
		if m.Role == core.RoleTool {
			toolMsgs++
		}
	}
	assert.Equal(t, 3, toolMsgs)
}

func TestProcess_UnrecoveredFailureStands(t *testing.T) {
	f := newFixture(t)
	f.provider.Enqueue(
		toolCallResponse("", core.ToolCall{ID: "c1", Name: "get_clip", Arguments: map[string]any{"clip_id": "missing"}}),
		stopResponse("could not find it"),
	)

	res := f.orch.Process(context.Background(), "inspect the clip")
	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.Success)
	require.Len(t, res.ToolResults, 1)
	assert.False(t, res.ToolResults[0].Result.Success)
}

func TestProcess_Cancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.orch.Process(ctx, "hello")
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Empty(t, f.orch.History())
}

func TestProcess_ToolTimeout(t *testing.T) {
	f := newFixture(t, WithToolTimeout(10*time.Millisecond))
	release := make(chan struct{})
	f.registry.Register(tool.NewFunctionTool("hang", "Hangs",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return "late", nil
		}))
	defer close(release)

	f.provider.Enqueue(
		toolCallResponse("", core.ToolCall{ID: "c1", Name: "hang", Arguments: map[string]any{}}),
		stopResponse("gave up"),
	)

	res := f.orch.Process(context.Background(), "hang")
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, core.CodeToolTimeout, res.ToolResults[0].Result.ErrorCode)
	assert.False(t, res.Success)
}

func TestFinalize_SummaryFallsBackToToolMessages(t *testing.T) {
	f := newFixture(t)
	f.provider.Enqueue(
		toolCallResponse("", addClipCall("c1", "intro", 0, 10)),
		provider.Response{FinishReason: provider.FinishStop}, // no content
	)

	res := f.orch.Process(context.Background(), "add a clip")
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "add_clip:")
}
