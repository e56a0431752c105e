package timeline

import (
	"context"
	"fmt"

	"github.com/clipmesh/clipmesh/tool"
)

func opErrToToolErr(toolName string, err error) error {
	if oe, ok := err.(*OpError); ok {
		return tool.NewToolError(toolName, oe.Message, oe.Code)
	}
	return err
}

func numArg(args map[string]any, key string, def float64) float64 {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func strArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// RegisterTools registers the built-in timeline toolset against a document.
// Tool names follow the get_/list_ read prefix convention the default
// classifier relies on.
func RegisterTools(reg *tool.Registry, doc *Document) {
	numberSchema := func(desc string) map[string]any {
		return map[string]any{"type": "number", "minimum": 0.0, "description": desc}
	}

	reg.Register(tool.NewFunctionTool(
		"get_timeline_info",
		"Summarize the timeline: tracks, clips, duration, transcript and preview state",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			info := doc.Info()
			return tool.Output{Message: fmt.Sprintf("timeline %q: %v clips on %v tracks", doc.Name(), info["clips"], info["tracks"]), Data: info}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"list_tracks",
		"List all tracks in the timeline",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			tracks := doc.Tracks()
			return tool.Output{Message: fmt.Sprintf("%d tracks", len(tracks)), Data: tracks}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"list_clips",
		"List all clips in timeline order",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			clips := doc.Clips()
			return tool.Output{Message: fmt.Sprintf("%d clips", len(clips)), Data: clips}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"get_clip",
		"Fetch one clip by id",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"clip_id": map[string]any{"type": "string"}},
			"required":   []any{"clip_id"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			clip, err := doc.Clip(strArg(args, "clip_id"))
			if err != nil {
				return nil, opErrToToolErr("get_clip", err)
			}
			return tool.Output{Message: fmt.Sprintf("clip %s [%v, %v)", clip.Name, clip.Start, clip.End), Data: clip}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"add_clip",
		"Place a new clip on a track",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"track": map[string]any{"type": "string", "description": "track id or name"},
				"name":  map[string]any{"type": "string"},
				"start": numberSchema("timeline start, seconds"),
				"end":   numberSchema("timeline end, seconds"),
			},
			"required": []any{"track", "name", "start", "end"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			clip, err := doc.AddClip(strArg(args, "track"), strArg(args, "name"), numArg(args, "start", 0), numArg(args, "end", 0))
			if err != nil {
				return nil, opErrToToolErr("add_clip", err)
			}
			return tool.Output{Message: fmt.Sprintf("added clip %s", clip.Name), Data: clip}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"remove_clip",
		"Delete a clip from the timeline",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"clip_id": map[string]any{"type": "string"}},
			"required":   []any{"clip_id"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			if err := doc.RemoveClip(strArg(args, "clip_id")); err != nil {
				return nil, opErrToToolErr("remove_clip", err)
			}
			return "clip removed", nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"split_clip",
		"Cut a clip in two at a timeline position",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"clip_id": map[string]any{"type": "string"},
				"at":      numberSchema("split position, seconds"),
			},
			"required": []any{"clip_id", "at"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			left, right, err := doc.SplitClip(strArg(args, "clip_id"), numArg(args, "at", 0))
			if err != nil {
				return nil, opErrToToolErr("split_clip", err)
			}
			return tool.Output{Message: "clip split", Data: []Clip{left, right}}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"move_clip",
		"Shift a clip to a new start position",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"clip_id": map[string]any{"type": "string"},
				"start":   numberSchema("new start, seconds"),
			},
			"required": []any{"clip_id", "start"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			clip, err := doc.MoveClip(strArg(args, "clip_id"), numArg(args, "start", 0))
			if err != nil {
				return nil, opErrToToolErr("move_clip", err)
			}
			return tool.Output{Message: fmt.Sprintf("clip moved to %v", clip.Start), Data: clip}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"trim_clip",
		"Adjust a clip's in/out points",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"clip_id": map[string]any{"type": "string"},
				"start":   numberSchema("new in point, seconds"),
				"end":     numberSchema("new out point, seconds"),
			},
			"required": []any{"clip_id", "start", "end"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			clip, err := doc.TrimClip(strArg(args, "clip_id"), numArg(args, "start", 0), numArg(args, "end", 0))
			if err != nil {
				return nil, opErrToToolErr("trim_clip", err)
			}
			return tool.Output{Message: "clip trimmed", Data: clip}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"generate_transcript",
		"Generate a transcript with speech and silence spans for the current timeline",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			segs := doc.GenerateTranscript()
			return tool.Output{Message: fmt.Sprintf("transcript generated: %d segments", len(segs)), Data: segs}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"cut_silences",
		"Remove silence spans of at least min_duration seconds from the timeline",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"min_duration": map[string]any{"type": "number", "minimum": 0.0, "maximum": 60.0},
			},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			removed, err := doc.CutSilences(numArg(args, "min_duration", 0.5))
			if err != nil {
				return nil, opErrToToolErr("cut_silences", err)
			}
			return tool.Output{Message: fmt.Sprintf("removed %d silence spans", removed)}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"add_caption",
		"Add a caption over a time range using transcript text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start": numberSchema("caption start, seconds"),
				"end":   numberSchema("caption end, seconds"),
			},
			"required": []any{"start", "end"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			caption, err := doc.AddCaption(numArg(args, "start", 0), numArg(args, "end", 0))
			if err != nil {
				return nil, opErrToToolErr("add_caption", err)
			}
			return tool.Output{Message: fmt.Sprintf("caption added: %q", caption.Text), Data: caption}, nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"render_preview",
		"Render a preview of the current timeline revision",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			if err := doc.RenderPreview(); err != nil {
				return nil, opErrToToolErr("render_preview", err)
			}
			return "preview rendered", nil
		},
	))

	reg.Register(tool.NewFunctionTool(
		"export_segment",
		"Export a time range of the timeline to a destination file",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start": numberSchema("export start, seconds"),
				"end":   numberSchema("export end, seconds"),
				"dest":  map[string]any{"type": "string"},
				"format": map[string]any{
					"type": "string",
					"enum": []any{"mp4", "mov", "webm"},
				},
			},
			"required": []any{"start", "end"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			dest, err := doc.ExportSegment(numArg(args, "start", 0), numArg(args, "end", 0), strArg(args, "dest"))
			if err != nil {
				return nil, opErrToToolErr("export_segment", err)
			}
			return tool.Output{Message: fmt.Sprintf("exported to %s", dest), Data: map[string]any{"dest": dest}}, nil
		},
	))
}
