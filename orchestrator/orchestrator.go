// Package orchestrator drives one conversation turn end to end: it appends
// the user message to bounded history, asks the provider for a response,
// schedules any proposed tool calls through the dependency scheduler, applies
// recovery policies to failures, and loops until the provider stops proposing
// calls or the iteration ceiling is hit. With planning mode enabled, proposed
// calls are first materialized as an ExecutionPlan awaiting human
// confirmation; at most one plan is pending per orchestrator instance.
package orchestrator

import (
	"sync"
	"time"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/dag"
	"github.com/clipmesh/clipmesh/logging"
	"github.com/clipmesh/clipmesh/provider"
	"github.com/clipmesh/clipmesh/recovery"
	"github.com/clipmesh/clipmesh/tool"
)

// Defaults for the orchestration loop.
const (
	DefaultMaxIterations = 8
	DefaultToolTimeout   = 30 * time.Second
	DefaultHistoryLimit  = 50
	DefaultSystemPrompt  = "You are a video editing assistant. Use the available tools to inspect and edit the timeline. Prefer reading state before mutating it."
)

// Orchestrator coordinates provider, registry, scheduler and recovery engine
// for a single conversation. It owns the bounded history and the pending
// plan; both are guarded by one mutex, and the orchestrator processes at most
// one turn at a time (the single-writer invariant behind the "at most one
// pending plan" rule).
type Orchestrator struct {
	provider provider.Provider
	registry *tool.Registry
	recovery *recovery.Engine
	classify dag.Classifier
	executor *dag.Executor
	logger   logging.Logger

	maxIterations int
	toolTimeout   time.Duration
	historyLimit  int
	planningMode  bool
	systemPrompt  string

	mu          sync.Mutex
	history     *core.History
	pendingPlan *core.ExecutionPlan
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations bounds provider round-trips per turn.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) { o.maxIterations = n }
}

// WithToolTimeout bounds each tool execution.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.toolTimeout = d }
}

// WithHistoryLimit bounds retained history entries (most recent N).
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) { o.historyLimit = n }
}

// WithPlanningMode gates execution behind plan confirmation.
func WithPlanningMode(enabled bool) Option {
	return func(o *Orchestrator) { o.planningMode = enabled }
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// WithRecovery sets the recovery policy engine. Nil disables remediation.
func WithRecovery(e *recovery.Engine) Option {
	return func(o *Orchestrator) { o.recovery = e }
}

// WithClassifier replaces the default read/write classifier.
func WithClassifier(c dag.Classifier) Option {
	return func(o *Orchestrator) { o.classify = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New constructs an Orchestrator around a provider and tool registry.
func New(p provider.Provider, reg *tool.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:      p,
		registry:      reg,
		classify:      dag.DefaultClassifier,
		logger:        logging.NoOpLogger{},
		maxIterations: DefaultMaxIterations,
		toolTimeout:   DefaultToolTimeout,
		historyLimit:  DefaultHistoryLimit,
		systemPrompt:  DefaultSystemPrompt,
	}
	for _, fn := range opts {
		fn(o)
	}
	o.history = core.NewHistory(o.historyLimit)
	o.executor = dag.NewExecutor(dag.WithLogger(o.logger))
	return o
}

// History returns a copy of the current bounded history.
func (o *Orchestrator) History() []core.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history.Messages()
}

// requestMessages builds the provider request: the system prompt prepended
// fresh (never stored in history) followed by the bounded window.
func (o *Orchestrator) requestMessages() []core.Message {
	msgs := make([]core.Message, 0, o.history.Len()+1)
	msgs = append(msgs, core.Message{Role: core.RoleSystem, Content: o.systemPrompt, Timestamp: time.Now().UTC()})
	msgs = append(msgs, o.history.Messages()...)
	return msgs
}
