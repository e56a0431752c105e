package provider

import (
	"context"
	"sync"

	"github.com/clipmesh/clipmesh/core"
)

// ScriptedProvider is a lightweight in-memory Provider useful for tests and
// offline demos. Responses are consumed in FIFO order; once the script is
// exhausted every further request gets a plain stop response.
type ScriptedProvider struct {
	mu        sync.Mutex
	name      string
	available bool
	script    []Response
	requests  [][]core.Message // recorded request histories, in order
}

// NewScriptedProvider constructs an available provider with an empty script.
func NewScriptedProvider(name string) *ScriptedProvider {
	return &ScriptedProvider{name: name, available: true}
}

// Enqueue appends responses to the script.
func (p *ScriptedProvider) Enqueue(resps ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, resps...)
}

// SetAvailable toggles the availability probe result.
func (p *ScriptedProvider) SetAvailable(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = ok
}

// Requests returns the histories of every Chat call received so far.
func (p *ScriptedProvider) Requests() [][]core.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]core.Message, len(p.requests))
	copy(out, p.requests)
	return out
}

// Name implements Provider.
func (p *ScriptedProvider) Name() string { return p.name }

// IsAvailable implements Provider.
func (p *ScriptedProvider) IsAvailable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Chat implements Provider by popping the next scripted response.
func (p *ScriptedProvider) Chat(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	recorded := make([]core.Message, len(messages))
	copy(recorded, messages)
	p.requests = append(p.requests, recorded)

	if len(p.script) == 0 {
		return &Response{Content: "ok", FinishReason: FinishStop}, nil
	}
	next := p.script[0]
	p.script = p.script[1:]
	if next.FinishReason == "" {
		if len(next.ToolCalls) > 0 {
			next.FinishReason = FinishToolCalls
		} else {
			next.FinishReason = FinishStop
		}
	}
	return &next, nil
}
