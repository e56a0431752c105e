// Package recovery implements the policy engine that reclassifies tool
// failures into bounded, automatic remediation sequences. Resolve is a pure
// function over an ordered policy table: the first policy whose error code,
// tool scope and retry ceiling all match produces a decision; no match means
// the failure is terminal and surfaces as-is.
package recovery

import (
	"time"

	"github.com/clipmesh/clipmesh/core"
)

// Decision is the output of a matched policy, consumed exactly once by the
// caller: run the prerequisite calls in order, wait the delay, then attempt
// the retry call.
type Decision struct {
	PolicyID          string
	ErrorCode         string
	Reason            string
	MaxRetries        int
	Delay             time.Duration
	PrerequisiteCalls []core.ToolCall
	RetryCall         core.ToolCall
}

// Policy is one named remediation rule. Tools scopes the policy to specific
// tool names; empty means any tool. MaxRetries bounds how often the policy
// may fire for one call, independent of any outer iteration ceiling.
type Policy struct {
	ID         string
	ErrorCode  string
	Tools      []string
	MaxRetries int
	Reason     string

	// Prerequisites synthesizes the calls that must run before the retry.
	// Nil means no prerequisites.
	Prerequisites func(failed core.ToolCall) []core.ToolCall

	// Rewrite transforms the failed call into the retry call. Nil keeps the
	// original arguments (a fresh copy is made either way).
	Rewrite func(failed core.ToolCall) core.ToolCall

	// Backoff computes the pre-retry delay from the retry count. Nil means
	// no delay.
	Backoff func(retryCount int) time.Duration
}

// applies reports whether the policy covers the given tool.
func (p *Policy) applies(toolName string) bool {
	if len(p.Tools) == 0 {
		return true
	}
	for _, t := range p.Tools {
		if t == toolName {
			return true
		}
	}
	return false
}

// Engine is an ordered policy table.
type Engine struct {
	policies []Policy
}

// NewEngine builds an engine from policies in match-priority order.
func NewEngine(policies ...Policy) *Engine {
	return &Engine{policies: policies}
}

// Resolve maps a failed call to a remediation decision, or nil when the
// failure is terminal. Policies never fire once retryCount has reached their
// own MaxRetries, and never fire for tools outside their scope even when the
// error code matches.
func (e *Engine) Resolve(failed core.ToolCall, errorCode string, retryCount int) *Decision {
	for i := range e.policies {
		p := &e.policies[i]
		if p.ErrorCode != errorCode || !p.applies(failed.Name) {
			continue
		}
		if retryCount >= p.MaxRetries {
			continue
		}

		retry := failed.Clone()
		if p.Rewrite != nil {
			retry = p.Rewrite(failed)
		}
		retry.ID = core.NewID() // retries are new calls, never reused ids

		var prereqs []core.ToolCall
		if p.Prerequisites != nil {
			prereqs = p.Prerequisites(failed)
			for i := range prereqs {
				if prereqs[i].ID == "" {
					prereqs[i].ID = core.NewID()
				}
			}
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(retryCount)
		}

		return &Decision{
			PolicyID:          p.ID,
			ErrorCode:         errorCode,
			Reason:            p.Reason,
			MaxRetries:        p.MaxRetries,
			Delay:             delay,
			PrerequisiteCalls: prereqs,
			RetryCall:         retry,
		}
	}
	return nil
}

// ExponentialBackoff returns a backoff function starting at base and doubling
// per attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(retryCount int) time.Duration {
		d := base
		for i := 0; i < retryCount; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}
