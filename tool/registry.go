package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/logging"
)

// Registry is a lookup from tool name to executable capability. It is safe
// for concurrent use; registration normally happens once at startup but is
// permitted at any time.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for per-call execution records.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry constructs an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{tools: map[string]Tool{}, logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds a tool under its own name, replacing any previous entry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool catalogue advertised to the provider,
// ordered by name for deterministic requests.
func (r *Registry) Definitions() []core.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]core.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, core.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute looks up and runs a tool, converting every outcome into a uniform
// core.Result. An unregistered name is a terminal TOOL_NOT_FOUND result, not
// an error that unwinds the scheduler; panics inside tools are recovered and
// reported as failed results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) core.Result {
	impl, ok := r.Get(name)
	if !ok {
		return core.Result{
			Success:   false,
			Message:   fmt.Sprintf("tool %s not found", name),
			ErrorCode: core.CodeToolNotFound,
		}
	}

	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	var (
		value any
		err   error
	)
	func() { // panic safety
		defer func() {
			if rec := recover(); rec != nil {
				err = &ToolError{
					Tool:    name,
					Message: fmt.Sprintf("panic: %v", rec),
					Code:    core.CodeToolExecutionFailed,
					Details: string(debug.Stack()),
				}
				r.logger.Error("tool.call.panic", "tool", name, "recover", rec)
			}
		}()
		value, err = impl.Call(ctx, args)
	}()

	r.logger.Debug("tool.call.executed",
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return resultFromError(name, err)
	}
	return resultFromValue(name, value)
}

// ExecuteWithTimeout races Execute against a deadline. If the timeout elapses
// first the call is reported as a TOOL_TIMEOUT failure and the underlying
// operation's eventual completion is discarded, so one runaway tool can never
// block the scheduler indefinitely.
func (r *Registry) ExecuteWithTimeout(ctx context.Context, name string, args map[string]any, timeout time.Duration) core.Result {
	if timeout <= 0 {
		return r.Execute(ctx, name, args)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan core.Result, 1)
	go func() {
		done <- r.Execute(callCtx, name, args)
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		return core.Result{
			Success:   false,
			Message:   fmt.Sprintf("tool %s did not complete within %s", name, timeout),
			ErrorCode: core.CodeToolTimeout,
		}
	}
}

func resultFromError(name string, err error) core.Result {
	if te, ok := err.(*ToolError); ok {
		code := te.Code
		if code == "" {
			code = core.CodeToolExecutionFailed
		}
		return core.Result{Success: false, Message: te.Message, ErrorCode: code, Data: te.Details}
	}
	return core.Result{Success: false, Message: err.Error(), ErrorCode: core.CodeToolExecutionFailed}
}

func resultFromValue(name string, value any) core.Result {
	switch v := value.(type) {
	case core.Result:
		return v
	case Output:
		return core.Result{Success: true, Message: v.Message, Data: v.Data}
	case string:
		return core.Result{Success: true, Message: v}
	case nil:
		return core.Result{Success: true, Message: fmt.Sprintf("%s completed", name)}
	default:
		return core.Result{Success: true, Message: fmt.Sprintf("%s completed", name), Data: v}
	}
}
