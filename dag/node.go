package dag

import "github.com/clipmesh/clipmesh/core"

// NodeState tracks a node through the scheduling lifecycle.
type NodeState int

const (
	// StatePending means at least one dependency is not yet terminal.
	StatePending NodeState = iota
	// StateReady means all dependencies are terminal; the node is waiting for
	// its resource locks to become free.
	StateReady
	// StateRunning means the node's tool is executing and its locks are held.
	StateRunning
	// StateCompleted means the tool reported success.
	StateCompleted
	// StateFailed means the tool reported failure or timed out.
	StateFailed
)

// String returns the state name for logs and test output.
func (s NodeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is completed or failed.
func (s NodeState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Node is one scheduled step with its resolved operation, dependencies and
// resource locks. Nodes are derived from plan steps at graph-construction
// time and are ephemeral: they live for one batch.
type Node struct {
	Step          core.PlanStep
	Index         int // position in the original batch, used as tie-break
	Operation     core.Operation
	DependsOn     []string
	ResourceLocks []string
}

// ID returns the underlying step id.
func (n *Node) ID() string { return n.Step.ID }
