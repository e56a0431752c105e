package recovery

import (
	"time"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/timeline"
)

// Default backoff bounds for transient media contention.
const (
	busyBackoffBase = 250 * time.Millisecond
	busyBackoffMax  = 4 * time.Second
)

// DefaultPolicies returns the remediation table for the built-in timeline
// toolset, in match-priority order:
//
//  1. missing-transcript bootstrap: transcript-dependent tools fail with
//     MISSING_TRANSCRIPT until generate_transcript has run; inject one
//     generate_transcript call and retry once, no delay.
//  2. media-busy backoff: the media pipeline rejects work while another
//     render/export is in flight; retry with exponential delay, no
//     prerequisites, up to three attempts.
//  3. stale-preview refresh: export_segment requires a preview rendered
//     after the last mutation; re-run render_preview and retry once.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			ID:         "missing-transcript-bootstrap",
			ErrorCode:  timeline.CodeMissingTranscript,
			Tools:      []string{"cut_silences", "add_caption"},
			MaxRetries: 1,
			Reason:     "transcript not generated yet; generating it and retrying",
			Prerequisites: func(failed core.ToolCall) []core.ToolCall {
				return []core.ToolCall{{Name: "generate_transcript", Arguments: map[string]any{}}}
			},
		},
		{
			ID:         "media-busy-backoff",
			ErrorCode:  timeline.CodeMediaBusy,
			MaxRetries: 3,
			Reason:     "media pipeline busy; backing off before retry",
			Backoff:    ExponentialBackoff(busyBackoffBase, busyBackoffMax),
		},
		{
			ID:         "stale-preview-refresh",
			ErrorCode:  timeline.CodeStalePreview,
			Tools:      []string{"export_segment"},
			MaxRetries: 1,
			Reason:     "preview is stale after a mutation; re-rendering and retrying",
			Prerequisites: func(failed core.ToolCall) []core.ToolCall {
				return []core.ToolCall{{Name: "render_preview", Arguments: map[string]any{}}}
			},
		},
	}
}

// DefaultEngine is NewEngine over DefaultPolicies.
func DefaultEngine() *Engine {
	return NewEngine(DefaultPolicies()...)
}
