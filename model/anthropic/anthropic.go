// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = anthropic.Model("claude-sonnet-4-5")

// MessagesClient captures the subset of the SDK client used by the adapter.
// It is satisfied by *anthropic.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// Pricing overrides the built-in price list; nil falls back to it.
	Pricing *model.Pricing
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client MessagesClient
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client.Messages, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client MessagesClient, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       DefaultModel,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return opts
}

// Generate issues a non-streaming Messages.New call and emits one model.Response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		resp, err := m.generate(ctx, req)
		if err != nil {
			close(out)
			errCh <- err
			return
		}
		out <- resp
		close(out)
	}()

	return out, errCh
}

func (m *Model) generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools, err := buildTools(req.Tools)
		if err != nil {
			return model.Response{}, err
		}
		params.Tools = tools
	}

	msg, err := m.client.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	return translateResponse(msg)
}

// buildMessages converts conversation turns to Anthropic message params.
// Thinking blocks are dropped since extended thinking is not requested.
func buildMessages(turns []model.Turn) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(turns))

	for _, turn := range turns {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range turn.Content {
			switch v := b.(type) {
			case core.TextBlock:
				if v.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(v.Text))
				}
			case core.ToolUseBlock:
				input := v.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(v.ID, input, v.Name))
			case core.ToolResultBlock:
				blocks = append(blocks, anthropic.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			case core.ThinkingBlock:
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if turn.Role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	return messages
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(defs []model.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))

	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if def.Parameters != nil {
			raw, err := json.Marshal(def.Parameters)
			if err != nil {
				return nil, fmt.Errorf("encode schema for %s: %w", def.Name, err)
			}
			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, fmt.Errorf("decode schema for %s: %w", def.Name, err)
			}
			schema.ExtraFields = fields
		}

		u := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil && def.Description != "" {
			u.OfTool.Description = anthropic.String(def.Description)
		}
		tools = append(tools, u)
	}

	return tools, nil
}

func translateResponse(msg *anthropic.Message) (model.Response, error) {
	if msg == nil {
		return model.Response{}, fmt.Errorf("anthropic api error: empty response")
	}

	var blocks []core.Block
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				blocks = append(blocks, core.TextBlock{Text: block.Text})
			}
		case "thinking":
			blocks = append(blocks, core.ThinkingBlock{Thinking: block.Thinking, Signature: block.Signature})
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return model.Response{}, fmt.Errorf("decode tool input for %s: %w", block.Name, err)
				}
			}
			blocks = append(blocks, core.ToolUseBlock{ID: block.ID, Name: block.Name, Input: input})
		}
	}

	stop := string(msg.StopReason)
	if stop == "" {
		stop = model.StopEndTurn
	}

	return model.Response{
		ID:         msg.ID,
		Content:    blocks,
		StopReason: stop,
		Usage: model.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	pricing := m.opts.Pricing
	if pricing == nil {
		if p, ok := prices[string(m.opts.Model)]; ok {
			pricing = &p
		}
	}
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
		Pricing:       pricing,
	}
}

// USD per million tokens.
var prices = map[string]model.Pricing{
	"claude-sonnet-4-5":       {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-sonnet-4-0":       {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-opus-4-1":         {InputPerMTok: 15, OutputPerMTok: 75},
	"claude-haiku-4-5":        {InputPerMTok: 1, OutputPerMTok: 5},
	"claude-3-5-haiku-latest": {InputPerMTok: 0.8, OutputPerMTok: 4},
}
