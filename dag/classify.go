package dag

import (
	"strings"

	"github.com/clipmesh/clipmesh/core"
)

// Classifier decides whether a tool is read-only or mutating based on its
// name. It is injected into graph construction so alternate strategies
// (explicit annotation only, cost-based, a hand-maintained table) can replace
// the naming heuristic without touching graph logic.
type Classifier func(toolName string) core.Operation

// PrefixClassifier returns a classifier that treats tool names starting with
// any of the given prefixes as read-only and everything else as a write.
func PrefixClassifier(readPrefixes ...string) Classifier {
	return func(toolName string) core.Operation {
		for _, p := range readPrefixes {
			if strings.HasPrefix(toolName, p) {
				return core.OpRead
			}
		}
		return core.OpWrite
	}
}

// DefaultClassifier applies the get_/list_ naming convention.
var DefaultClassifier = PrefixClassifier("get_", "list_")
