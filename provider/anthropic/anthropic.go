// Package anthropic provides a provider.Provider backed by the Anthropic
// Messages API, including function/tool calling.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/provider"
)

// Options configures the Anthropic adapter. Extend via functional options to
// preserve call-site stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind the generic provider contract.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic provider using the official client.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic provider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return "anthropic" }

// IsAvailable reports local readiness: a constructed client with credentials.
// Transport failures surface on Chat, not here.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	return p.opts.APIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != ""
}

// Chat implements provider.Provider over the Messages API.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (*provider.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(messages),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}

	if system := extractSystem(messages); len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	out := &provider.Response{FinishReason: provider.FinishStop}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			var args map[string]any
			if b, err := json.Marshal(tu.Input); err == nil {
				_ = json.Unmarshal(b, &args)
			}
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: tu.ID, Name: tu.Name, Arguments: args})
		}
	}

	if string(resp.StopReason) == "tool_use" || len(out.ToolCalls) > 0 {
		out.FinishReason = provider.FinishToolCalls
	}
	return out, nil
}

// buildMessages converts history messages to Anthropic message params. Tool
// results are emitted as tool_result blocks in a user message directly after
// the assistant turn that requested them, as the Messages API expects.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			continue // handled via params.System
		case core.RoleUser:
			flushResults()
			if m.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		case core.RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		}
	}
	flushResults()
	return out
}

// extractSystem collects system-role text into system blocks.
func extractSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildTools converts the tool catalogue to Anthropic tool params.
func buildTools(tools []core.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if t.Parameters != nil {
			if properties, ok := t.Parameters["properties"]; ok {
				schema.Properties = properties
			}
			schema.Required = requiredStrings(t.Parameters["required"])
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

func requiredStrings(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
