package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipmesh/clipmesh/core"
)

func step(id, tool string) core.PlanStep {
	return core.PlanStep{ID: id, ToolName: tool, Arguments: map[string]any{}}
}

func TestBuildGraph_InferredDependencies(t *testing.T) {
	// read, write, read, write: the first node has no deps, reads depend on
	// the most recent preceding write, writes depend on all preceding nodes.
	nodes, err := BuildGraph([]core.PlanStep{
		step("s1", "get_timeline_info"),
		step("s2", "trim_clip"),
		step("s3", "list_clips"),
		step("s4", "remove_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Empty(t, nodes[0].DependsOn)
	assert.Equal(t, []string{"s1"}, nodes[1].DependsOn)
	assert.Equal(t, []string{"s2"}, nodes[2].DependsOn)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, nodes[3].DependsOn)
}

func TestBuildGraph_OperationsAndLocks(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("r", "list_tracks"),
		step("w", "add_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	assert.Equal(t, core.OpRead, nodes[0].Operation)
	assert.Empty(t, nodes[0].ResourceLocks)
	assert.Equal(t, core.OpWrite, nodes[1].Operation)
	assert.Equal(t, []string{DefaultMutationLock}, nodes[1].ResourceLocks)
}

func TestBuildGraph_ExplicitMetadataWins(t *testing.T) {
	s := step("a", "add_clip")
	s.Operation = core.OpRead
	s.ResourceLocks = []string{"custom"}
	b := step("b", "get_clip")
	b.DependsOn = []string{"a", "b", "missing"} // self and unknown ids dropped

	nodes, err := BuildGraph([]core.PlanStep{s, b}, DefaultClassifier)
	require.NoError(t, err)

	assert.Equal(t, core.OpRead, nodes[0].Operation)
	assert.Equal(t, []string{"custom"}, nodes[0].ResourceLocks)
	assert.Equal(t, []string{"a"}, nodes[1].DependsOn)
}

func TestBuildGraph_DuplicateID(t *testing.T) {
	_, err := BuildGraph([]core.PlanStep{step("x", "a"), step("x", "b")}, DefaultClassifier)
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, core.CodeValidation, be.Code)
}

func TestBuildGraph_CycleIsFatal(t *testing.T) {
	a := step("a", "add_clip")
	a.DependsOn = []string{"b"}
	b := step("b", "trim_clip")
	b.DependsOn = []string{"a"}

	_, err := BuildGraph([]core.PlanStep{a, b}, DefaultClassifier)
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, core.CodeCyclicDependency, be.Code)
}

func TestTopologicalOrder_PlanOrderTieBreak(t *testing.T) {
	// Three independent nodes must come out in plan order, not map order.
	nodes := []*Node{
		{Step: step("c", "get_c"), Index: 2, Operation: core.OpRead},
		{Step: step("a", "get_a"), Index: 0, Operation: core.OpRead},
		{Step: step("b", "get_b"), Index: 1, Operation: core.OpRead},
	}
	order, err := TopologicalOrder(nodes)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTopologicalOrder_RespectsEdges(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("r1", "get_timeline_info"),
		step("w1", "add_clip"),
		step("r2", "list_clips"),
	}, DefaultClassifier)
	require.NoError(t, err)

	order, err := TopologicalOrder(nodes)
	require.NoError(t, err)

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["r1"], pos["w1"])
	assert.Less(t, pos["w1"], pos["r2"])
}

func TestReadySet_LockGating(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("w1", "add_clip"),
		step("w2", "remove_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	states := map[string]NodeState{"w1": StatePending, "w2": StatePending}

	ready := ReadySet(nodes, states, LockSet{})
	require.Len(t, ready, 1)
	assert.Equal(t, "w1", ready[0].ID())

	// w1 holds the mutation lock: even with w1 completed recorded later, a
	// held lock keeps w2 out of the ready set.
	states["w1"] = StateCompleted
	held := LockSet{}
	held.Acquire([]string{DefaultMutationLock})
	assert.Empty(t, ReadySet(nodes, states, held))

	held.Release([]string{DefaultMutationLock})
	ready = ReadySet(nodes, states, held)
	require.Len(t, ready, 1)
	assert.Equal(t, "w2", ready[0].ID())
}

func TestReadySet_FailedDependencyUnblocks(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("w", "add_clip"),
		step("r", "get_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	states := map[string]NodeState{"w": StateFailed, "r": StatePending}
	ready := ReadySet(nodes, states, LockSet{})
	require.Len(t, ready, 1)
	assert.Equal(t, "r", ready[0].ID())
}

func TestPrefixClassifier(t *testing.T) {
	classify := PrefixClassifier("get_", "list_")
	assert.Equal(t, core.OpRead, classify("get_clip"))
	assert.Equal(t, core.OpRead, classify("list_tracks"))
	assert.Equal(t, core.OpWrite, classify("add_clip"))
	assert.Equal(t, core.OpWrite, classify("generate_transcript"))
}
