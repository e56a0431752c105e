package dag

// LockSet is the set of resource locks held by currently-running nodes.
type LockSet map[string]struct{}

// Holds reports whether any of the given locks is currently held.
func (ls LockSet) Holds(locks []string) bool {
	for _, l := range locks {
		if _, held := ls[l]; held {
			return true
		}
	}
	return false
}

// Acquire adds the locks to the set.
func (ls LockSet) Acquire(locks []string) {
	for _, l := range locks {
		ls[l] = struct{}{}
	}
}

// Release removes the locks from the set.
func (ls LockSet) Release(locks []string) {
	for _, l := range locks {
		delete(ls, l)
	}
}

// ReadySet returns the nodes eligible to run now: state pending or ready,
// every dependency in a terminal state, and no resource lock intersecting the
// running set. A failed dependency counts as terminal: it unblocks its
// dependents, which then run and report their own outcome. The predicate is
// re-evaluated after every state transition rather than memoized, because
// lock availability changes as running nodes complete.
func ReadySet(nodes []*Node, states map[string]NodeState, running LockSet) []*Node {
	var ready []*Node
	for _, n := range nodes {
		st := states[n.ID()]
		if st != StatePending && st != StateReady {
			continue
		}
		depsDone := true
		for _, dep := range n.DependsOn {
			if !states[dep].Terminal() {
				depsDone = false
				break
			}
		}
		if !depsDone {
			continue
		}
		if running.Holds(n.ResourceLocks) {
			continue
		}
		ready = append(ready, n)
	}
	return ready
}
