// Package dag is the dependency scheduler that turns an unordered batch of
// proposed plan steps into a safe execution order under resource locks.
//
// Graph construction classifies each step as a read or a write (explicitly or
// through a pluggable name-based classifier), resolves dependency edges
// (explicit ids or inferred read/write ordering rules) and resource locks
// (explicit or default-by-operation), and rejects cycles outright. The
// executor then dispatches every ready node concurrently: reads sharing no
// locks run in parallel while writes serialize on the default mutation lock.
// A node whose dependency failed still becomes ready: downstream nodes run
// and report their own outcome rather than hang.
package dag
