// Package openai provides a provider.Provider backed by the OpenAI Chat
// Completions API with function/tool calling. It adapts ClipMesh's normalized
// message history into the SDK's message format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clipmesh/clipmesh/core"
	"github.com/clipmesh/clipmesh/provider"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Provider wraps the OpenAI Chat Completions API behind the generic provider contract.
type Provider struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI provider using the official client.
func New(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return "openai" }

// IsAvailable reports local readiness: a constructed client with credentials.
// Transport failures surface on Chat, not here.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	return p.opts.APIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
}

// Chat implements provider.Provider over Chat Completions (non-streaming).
func (p *Provider) Chat(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (*provider.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	choice := resp.Choices[0]
	out := &provider.Response{
		Content:      choice.Message.Content,
		FinishReason: provider.FinishStop,
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	if choice.FinishReason == "tool_calls" || len(out.ToolCalls) > 0 {
		out.FinishReason = provider.FinishToolCalls
	}
	return out, nil
}

// buildMessages converts history messages into OpenAI chat messages. Tool
// results are attached as tool-role messages keyed by call id, directly after
// the assistant turn that requested them.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case core.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: buildToolCallParams(m.ToolCalls),
				},
			})
		case core.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

// buildToolCallParams converts proposed calls back into OpenAI tool call params.
func buildToolCallParams(calls []core.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	out := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, c := range calls {
		args := "{}"
		if b, err := json.Marshal(c.Arguments); err == nil {
			args = string(b)
		}
		out[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   c.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: args,
			},
		}
	}
	return out
}

// buildTools converts the tool catalogue into OpenAI tool definitions.
func buildTools(tools []core.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
