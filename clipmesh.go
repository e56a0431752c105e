// Package clipmesh is an orchestration core for LLM-driven editing of a shared
// video timeline. A model proposes batches of tool calls; ClipMesh turns each
// batch into a dependency graph, runs independent reads in parallel while
// serializing writes on resource locks, applies bounded recovery policies to
// tool failures, and (optionally) gates execution behind a human-confirmable
// plan.
//
// The package layout mirrors the runtime layering:
//
//   - core:         shared data model (tool calls, messages, plans)
//   - tool:         tool interface, registry and timeout-wrapped execution
//   - provider:     chat-model contract plus Anthropic / OpenAI adapters
//   - dag:          dependency scheduler (graph build, topo order, executor)
//   - recovery:     error-code-keyed remediation policy engine
//   - workflow:     reusable multi-step templates with override resolution
//   - timeline:     reference document model and built-in tool set
//   - session:      conversation persistence (in-memory and sqlite)
//   - orchestrator: the turn loop tying everything together
package clipmesh

// Version is the current ClipMesh version.
const Version = "0.1.0"
