package dag

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/clipmesh/clipmesh/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func okResult(msg string) core.Result {
	return core.Result{Success: true, Message: msg}
}

func TestExecutor_EmptyBatch(t *testing.T) {
	results, err := NewExecutor().Run(context.Background(), nil, func(context.Context, *Node) core.Result {
		t.Fatal("runner must not be called")
		return core.Result{}
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExecutor_ReadsRunInParallel(t *testing.T) {
	// Three independent reads: each blocks until all three have started,
	// which only works if they run concurrently.
	nodes, err := BuildGraph([]core.PlanStep{
		step("r1", "get_a"),
		step("r2", "get_b"),
		step("r3", "get_c"),
	}, DefaultClassifier)
	require.NoError(t, err)

	var started sync.WaitGroup
	started.Add(3)

	results, err := NewExecutor().Run(context.Background(), nodes, func(ctx context.Context, n *Node) core.Result {
		started.Done()
		started.Wait()
		return okResult(n.ID())
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestExecutor_WritesNeverOverlap(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		{ID: "w1", ToolName: "add_clip", Arguments: map[string]any{}, DependsOn: []string{}},
		{ID: "w2", ToolName: "trim_clip", Arguments: map[string]any{}, DependsOn: []string{}},
		{ID: "w3", ToolName: "remove_clip", Arguments: map[string]any{}, DependsOn: []string{}},
	}, DefaultClassifier)
	require.NoError(t, err)

	var inFlight, maxInFlight int32
	results, err := NewExecutor().Run(context.Background(), nodes, func(ctx context.Context, n *Node) core.Result {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return okResult(n.ID())
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	// All three writes share the default mutation lock despite having no
	// dependency edges between them.
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestExecutor_DependencyOrdering(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("w", "add_clip"),
		step("r", "get_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	results, err := NewExecutor().Run(context.Background(), nodes, func(ctx context.Context, n *Node) core.Result {
		mu.Lock()
		order = append(order, n.ID())
		mu.Unlock()
		return okResult(n.ID())
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"w", "r"}, order)
}

func TestExecutor_FailedDependencyStillRunsDependents(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("w", "add_clip"),
		step("r", "get_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	results, err := NewExecutor().Run(context.Background(), nodes, func(ctx context.Context, n *Node) core.Result {
		if n.ID() == "w" {
			return core.Result{Success: false, Message: "boom", ErrorCode: core.CodeToolExecutionFailed}
		}
		return okResult(n.ID())
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results["w"].Success)
	assert.True(t, results["r"].Success)
}

func TestExecutor_CancellationDrainsInFlight(t *testing.T) {
	nodes, err := BuildGraph([]core.PlanStep{
		step("w1", "add_clip"),
		step("w2", "trim_clip"),
	}, DefaultClassifier)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	results, err := NewExecutor().Run(ctx, nodes, func(ctx context.Context, n *Node) core.Result {
		// Cancel while the first node is in flight; it still finishes and its
		// result is recorded, but the second node is never dispatched.
		cancel()
		return okResult(n.ID())
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.True(t, results["w1"].Success)
}
