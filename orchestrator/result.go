package orchestrator

import (
	"fmt"
	"strings"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/provider"
)

// Turn statuses.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
	StatusPlanned   = "planned"
)

// Fallback user-visible messages when the provider supplied no text and no
// tool ran.
const (
	fallbackSuccess = "Done."
	fallbackFailure = "The request could not be completed."
)

// ExecutedCall pairs a dispatched tool call with its result. Prerequisite and
// retry calls synthesized by recovery policies are recorded as executed calls
// in their own right.
type ExecutedCall struct {
	Call   core.ToolCall `json:"call"`
	Result core.Result   `json:"result"`
}

// TurnResult is the outcome of one Process or ConfirmPlan turn. ToolResults
// lists every executed call in dispatch-completion order, even when the turn
// ends in an error such as the iteration ceiling.
type TurnResult struct {
	Status      string         `json:"status"`
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ToolResults []ExecutedCall `json:"tool_results,omitempty"`

	// Plan is set when Status is planned: either the newly created plan or,
	// on a rejected Process call, the plan still pending.
	Plan *core.ExecutionPlan `json:"plan,omitempty"`
}

// finalize applies the finalization policy: overall success requires the
// final response to not signal an error and every node's final result to
// have succeeded. Attempts that a recovery retry repaired stay listed in
// ToolResults without failing the turn. The message is the provider's text
// if present, else a synthesized per-call summary, else a fixed fallback.
func finalize(resp *provider.Response, rec *recorder) *TurnResult {
	var executed []ExecutedCall
	success := resp.FinishReason != provider.FinishError
	if rec != nil {
		executed = rec.calls()
		if rec.anyFailed() {
			success = false
		}
	}

	msg := resp.Content
	if msg == "" {
		msg = summarize(executed)
	}
	if msg == "" {
		if success {
			msg = fallbackSuccess
		} else {
			msg = fallbackFailure
		}
	}

	status := StatusCompleted
	var code string
	if !success {
		status = StatusError
		code = core.CodeToolExecutionFailed
		if resp.FinishReason == provider.FinishError {
			code = core.CodeProviderError
		}
	}
	return &TurnResult{Status: status, Success: success, Message: msg, ErrorCode: code, ToolResults: executed}
}

// summarize renders "toolName: resultMessage" lines for every executed call.
func summarize(executed []ExecutedCall) string {
	if len(executed) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ec := range executed {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", ec.Call.Name, ec.Result.Message)
	}
	return b.String()
}

func errorResult(code, message string, executed []ExecutedCall) *TurnResult {
	return &TurnResult{Status: StatusError, Message: message, ErrorCode: code, ToolResults: executed}
}

func cancelledResult(executed []ExecutedCall) *TurnResult {
	return &TurnResult{Status: StatusCancelled, Message: "turn cancelled", ToolResults: executed}
}
