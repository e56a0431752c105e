// Package core defines the shared data model for ClipMesh: tool calls and
// results, role-tagged conversation messages, plan steps and execution plans.
// Every higher layer (scheduler, recovery engine, providers, orchestrator)
// speaks these types so no two of them need to import each other.
package core
