package workflow

// BuiltinCatalogue returns the timeline workflows shipped with ClipMesh.
// Deployments typically extend it with LoadYAMLFile.
func BuiltinCatalogue() *Catalogue {
	numberArg := func(desc string, max float64) map[string]any {
		return map[string]any{"type": "number", "minimum": 0.0, "maximum": max, "description": desc}
	}

	roughCut := Template{
		Name:    "rough_cut",
		Summary: "Generate a transcript, tighten silences and render a preview",
		Steps: []TemplateStep{
			{
				ID:       "transcript",
				ToolName: "generate_transcript",
				Summary:  "Transcribe the current timeline",
			},
			{
				ID:        "tighten",
				ToolName:  "cut_silences",
				Arguments: map[string]any{"min_duration": 0.5},
				ArgumentSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_duration": numberArg("shortest silence to remove, seconds", 60),
					},
				},
				Summary: "Remove long silences",
			},
			{
				ID:       "preview",
				ToolName: "render_preview",
				Summary:  "Render a fresh preview",
			},
		},
	}

	captionedExport := Template{
		Name:    "captioned_export",
		Summary: "Caption a range and export it",
		Steps: []TemplateStep{
			{
				ID:        "caption",
				ToolName:  "add_caption",
				Arguments: map[string]any{"start": 0.0, "end": 10.0},
				ArgumentSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start": numberArg("caption start, seconds", 86400),
						"end":   numberArg("caption end, seconds", 86400),
					},
					"required": []any{"start", "end"},
				},
				Summary: "Add a caption from transcript text",
			},
			{
				ID:       "preview",
				ToolName: "render_preview",
				Summary:  "Render a fresh preview",
			},
			{
				ID:        "export",
				ToolName:  "export_segment",
				Arguments: map[string]any{"start": 0.0, "end": 10.0, "format": "mp4"},
				ArgumentSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start":  numberArg("export start, seconds", 86400),
						"end":    numberArg("export end, seconds", 86400),
						"dest":   map[string]any{"type": "string"},
						"format": map[string]any{"type": "string", "enum": []any{"mp4", "mov", "webm"}},
					},
					"required": []any{"start", "end"},
				},
				Summary: "Export the captioned range",
			},
		},
	}

	return NewCatalogue(roughCut, captionedExport)
}
