package workflow

import (
	"fmt"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/internal/util"
)

// Override adjusts one template step's arguments. Exactly one of StepID or
// Index must address the target step; supplying both is ambiguous and
// supplying neither is a validation error.
type Override struct {
	StepID    string         `json:"step_id,omitempty"`
	Index     *int           `json:"index,omitempty"`
	Arguments map[string]any `json:"arguments"`
}

// ResolveError is a typed resolution failure. Resolution is all-or-nothing:
// any error means no steps are produced and the template is untouched.
type ResolveError struct {
	Code    string
	Step    string
	Key     string
	Message string
}

func (e *ResolveError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Resolve applies overrides to a template and validates every merged step
// against its declared argument schema. Override keys win; unspecified keys
// retain template defaults. The template's own step list is never mutated.
func Resolve(tpl Template, overrides []Override) ([]core.PlanStep, error) {
	// Work on copies so a failed resolution leaves the catalogue untouched.
	steps := make([]TemplateStep, len(tpl.Steps))
	for i, s := range tpl.Steps {
		steps[i] = s
		steps[i].Arguments = copyArgs(s.Arguments)
	}

	for _, ov := range overrides {
		idx, err := locateStep(steps, ov)
		if err != nil {
			return nil, err
		}
		for k, v := range ov.Arguments {
			steps[idx].Arguments[k] = v
		}
	}

	for _, s := range steps {
		if s.ArgumentSchema == nil {
			continue
		}
		if err := util.ValidateParameters(s.Arguments, s.ArgumentSchema); err != nil {
			ve, _ := err.(*util.ValidationError)
			re := &ResolveError{Code: core.CodeValidation, Step: s.ID, Message: err.Error()}
			if ve != nil {
				re.Key = ve.Field
			}
			return nil, re
		}
	}

	out := make([]core.PlanStep, len(steps))
	for i, s := range steps {
		out[i] = core.PlanStep{
			ID:        s.ID,
			ToolName:  s.ToolName,
			Arguments: s.Arguments,
			Summary:   s.Summary,
		}
		if out[i].ID == "" {
			out[i].ID = core.NewID()
		}
	}
	return out, nil
}

// locateStep resolves an override's address to a step index.
func locateStep(steps []TemplateStep, ov Override) (int, error) {
	hasID := ov.StepID != ""
	hasIndex := ov.Index != nil

	switch {
	case hasID && hasIndex:
		return 0, &ResolveError{
			Code:    core.CodeAmbiguousOverride,
			Message: fmt.Sprintf("override addresses both step id %q and index %d; specify exactly one", ov.StepID, *ov.Index),
		}
	case !hasID && !hasIndex:
		return 0, &ResolveError{
			Code:    core.CodeValidation,
			Message: "override must address a step by id or index",
		}
	case hasID:
		for i := range steps {
			if steps[i].ID == ov.StepID {
				return i, nil
			}
		}
		return 0, &ResolveError{
			Code:    core.CodeStepNotFound,
			Step:    ov.StepID,
			Message: "no step with this id",
		}
	default:
		if *ov.Index < 0 || *ov.Index >= len(steps) {
			return 0, &ResolveError{
				Code:    core.CodeStepNotFound,
				Step:    fmt.Sprintf("#%d", *ov.Index),
				Message: fmt.Sprintf("index out of range [0, %d)", len(steps)),
			}
		}
		return *ov.Index, nil
	}
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
