package workflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipmesh/clipmesh/core"
)

func sampleTemplate() Template {
	return Template{
		Name:    "sample",
		Summary: "two-step sample",
		Steps: []TemplateStep{
			{
				ID:        "first",
				ToolName:  "cut_silences",
				Arguments: map[string]any{"min_duration": 0.5},
				ArgumentSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_duration": map[string]any{"type": "number", "minimum": 0.0, "maximum": 60.0},
					},
					"required": []any{"min_duration"},
				},
			},
			{
				ID:        "second",
				ToolName:  "export_segment",
				Arguments: map[string]any{"start": 0.0, "end": 5.0, "format": "mp4"},
				ArgumentSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start":  map[string]any{"type": "number"},
						"end":    map[string]any{"type": "number"},
						"format": map[string]any{"type": "string", "enum": []any{"mp4", "mov"}},
					},
					"required": []any{"start", "end"},
				},
			},
		},
	}
}

func TestResolve_NoOverridesIsIdentity(t *testing.T) {
	tpl := sampleTemplate()

	once, err := Resolve(tpl, nil)
	require.NoError(t, err)
	twice, err := Resolve(tpl, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("resolution is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, "first", once[0].ID)
	assert.Equal(t, 0.5, once[0].Arguments["min_duration"])
}

func TestResolve_OverrideByID(t *testing.T) {
	steps, err := Resolve(sampleTemplate(), []Override{
		{StepID: "first", Arguments: map[string]any{"min_duration": 2.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, steps[0].Arguments["min_duration"])
	// Untouched keys keep template defaults.
	assert.Equal(t, "mp4", steps[1].Arguments["format"])
}

func TestResolve_OverrideByIndex(t *testing.T) {
	idx := 1
	steps, err := Resolve(sampleTemplate(), []Override{
		{Index: &idx, Arguments: map[string]any{"end": 9.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 9.0, steps[1].Arguments["end"])
}

func TestResolve_AmbiguousOverride(t *testing.T) {
	idx := 0
	_, err := Resolve(sampleTemplate(), []Override{
		{StepID: "first", Index: &idx, Arguments: map[string]any{"min_duration": 1.0}},
	})
	require.Error(t, err)
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeAmbiguousOverride, re.Code)
}

func TestResolve_UnaddressedOverride(t *testing.T) {
	_, err := Resolve(sampleTemplate(), []Override{
		{Arguments: map[string]any{"min_duration": 1.0}},
	})
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeValidation, re.Code)
}

func TestResolve_StepNotFound(t *testing.T) {
	_, err := Resolve(sampleTemplate(), []Override{
		{StepID: "nope", Arguments: map[string]any{"x": 1}},
	})
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeStepNotFound, re.Code)

	idx := 7
	_, err = Resolve(sampleTemplate(), []Override{
		{Index: &idx, Arguments: map[string]any{"x": 1}},
	})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeStepNotFound, re.Code)
}

func TestResolve_SchemaViolationIsAllOrNothing(t *testing.T) {
	tpl := sampleTemplate()
	_, err := Resolve(tpl, []Override{
		{StepID: "first", Arguments: map[string]any{"min_duration": 120.0}}, // over maximum
	})
	require.Error(t, err)
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeValidation, re.Code)
	assert.Equal(t, "first", re.Step)
	assert.Equal(t, "min_duration", re.Key)

	// The template itself is untouched by the failed resolution.
	assert.Equal(t, 0.5, tpl.Steps[0].Arguments["min_duration"])
}

func TestResolve_EnumViolation(t *testing.T) {
	_, err := Resolve(sampleTemplate(), []Override{
		{StepID: "second", Arguments: map[string]any{"format": "avi"}},
	})
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, core.CodeValidation, re.Code)
	assert.Equal(t, "second", re.Step)
}

func TestCatalogue_GetIsCaseInsensitive(t *testing.T) {
	cat := BuiltinCatalogue()
	tpl, err := cat.Get("ROUGH_CUT")
	require.NoError(t, err)
	assert.Equal(t, "rough_cut", tpl.Name)

	_, err = cat.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), core.CodeWorkflowNotFound)
}

func TestCatalogue_LoadYAML(t *testing.T) {
	cat := NewCatalogue()
	err := cat.LoadYAML([]byte(`
- name: quick_trim
  summary: trim a clip
  steps:
    - id: trim
      tool: trim_clip
      arguments:
        start: 0
        end: 3
`))
	require.NoError(t, err)

	tpl, err := cat.Get("quick_trim")
	require.NoError(t, err)
	require.Len(t, tpl.Steps, 1)
	assert.Equal(t, "trim_clip", tpl.Steps[0].ToolName)

	steps, err := Resolve(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "trim", steps[0].ID)
}

func TestBuiltinCatalogue_ResolvesCleanly(t *testing.T) {
	cat := BuiltinCatalogue()
	for _, name := range cat.Names() {
		tpl, err := cat.Get(name)
		require.NoError(t, err)
		steps, err := Resolve(tpl, nil)
		require.NoError(t, err, "template %s must resolve without overrides", name)
		assert.NotEmpty(t, steps)
	}
}
