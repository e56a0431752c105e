package dag

import (
	"fmt"

	"github.com/clipmesh/clipmesh/core"
)

// DefaultMutationLock is the resource lock every write-classified node
// acquires when the step declares none. It is what serializes document
// mutations relative to each other.
const DefaultMutationLock = "document:mutate"

// BuildError is a construction-time failure. The whole batch is rejected
// before any execution.
type BuildError struct {
	Code    string
	Message string
}

func (e *BuildError) Error() string { return fmt.Sprintf("[%s] %s", e.Code, e.Message) }

// BuildGraph derives one node per step in input order. For each step it
// resolves, in this order:
//
//   - Operation: the explicit value, else the classifier's verdict.
//   - DependsOn: explicit ids filtered to known, non-self ids; when absent,
//     the inference rule applies: the first node has no dependencies, a read
//     depends on the most recent preceding write, and a write depends on all
//     preceding nodes.
//   - ResourceLocks: the explicit list, else no locks for reads and the
//     default mutation lock for writes.
//
// BuildGraph is deterministic and order-preserving: the same input yields the
// same output. A nil classifier falls back to DefaultClassifier.
func BuildGraph(steps []core.PlanStep, classify Classifier) ([]*Node, error) {
	if classify == nil {
		classify = DefaultClassifier
	}

	known := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			return nil, &BuildError{Code: core.CodeValidation, Message: fmt.Sprintf("step at index %d has no id", i)}
		}
		if _, dup := known[s.ID]; dup {
			return nil, &BuildError{Code: core.CodeValidation, Message: fmt.Sprintf("duplicate step id %q", s.ID)}
		}
		known[s.ID] = i
	}

	nodes := make([]*Node, 0, len(steps))
	var lastWrite int = -1

	for i, s := range steps {
		op := s.Operation
		if op != core.OpRead && op != core.OpWrite {
			op = classify(s.ToolName)
		}

		var deps []string
		if s.DependsOn != nil {
			for _, dep := range s.DependsOn {
				if dep == s.ID {
					continue
				}
				if _, ok := known[dep]; ok {
					deps = append(deps, dep)
				}
			}
		} else {
			switch {
			case i == 0:
				// first node has no dependencies
			case op == core.OpRead:
				if lastWrite >= 0 {
					deps = append(deps, steps[lastWrite].ID)
				}
			default: // write depends on all preceding nodes
				for j := 0; j < i; j++ {
					deps = append(deps, steps[j].ID)
				}
			}
		}

		locks := s.ResourceLocks
		if locks == nil {
			if op == core.OpWrite {
				locks = []string{DefaultMutationLock}
			} else {
				locks = []string{}
			}
		}

		nodes = append(nodes, &Node{
			Step:          s,
			Index:         i,
			Operation:     op,
			DependsOn:     deps,
			ResourceLocks: locks,
		})

		if op == core.OpWrite {
			lastWrite = i
		}
	}

	// Cycles are a construction-time fatal error, never partially executed.
	if _, err := TopologicalOrder(nodes); err != nil {
		return nil, err
	}

	return nodes, nil
}
