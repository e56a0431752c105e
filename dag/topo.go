package dag

import (
	"fmt"

	"github.com/clipmesh/clipmesh/core"
)

// TopologicalOrder orders node ids with Kahn's algorithm. Zero-in-degree
// nodes are emitted in original batch order (the tie-break is plan order, not
// map iteration order) so scheduling is deterministic. If fewer ids are
// emitted than nodes exist, the graph contains a cycle and a BuildError with
// code CYCLIC_DEPENDENCY is returned.
func TopologicalOrder(nodes []*Node) ([]string, error) {
	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}

	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]*Node, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID()] += 0
		for _, dep := range n.DependsOn {
			if _, ok := byID[dep]; !ok {
				continue
			}
			inDegree[n.ID()]++
			successors[dep] = append(successors[dep], n)
		}
	}

	// ready holds zero-in-degree nodes; popMin keeps emission in index order.
	var ready []*Node
	for _, n := range nodes {
		if inDegree[n.ID()] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		min := 0
		for i := 1; i < len(ready); i++ {
			if ready[i].Index < ready[min].Index {
				min = i
			}
		}
		n := ready[min]
		ready = append(ready[:min], ready[min+1:]...)
		order = append(order, n.ID())

		for _, succ := range successors[n.ID()] {
			inDegree[succ.ID()]--
			if inDegree[succ.ID()] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) < len(nodes) {
		return nil, &BuildError{
			Code:    core.CodeCyclicDependency,
			Message: fmt.Sprintf("dependency graph contains a cycle: emitted %d of %d nodes", len(order), len(nodes)),
		}
	}
	return order, nil
}
