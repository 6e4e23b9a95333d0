// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API with function/tool calling. It adapts the normalized
// Request/Response structures into the SDK's message format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/model"
)

// CompletionsClient captures the subset of the SDK used by the adapter.
// It is satisfied by *openai.ChatCompletionService.
type CompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	// Pricing overrides the built-in price list; nil falls back to it.
	Pricing *model.Pricing
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client CompletionsClient
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Model{client: &client.Chat.Completions, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client CompletionsClient, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}
	return opts
}

// Generate issues a non-streaming completion and emits one model.Response.
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
	resp, err := m.client.New(ctx, m.buildParams(req, buildMessages(req)))
	if err != nil {
		return model.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("openai api error: no choices returned")
	}

	ch0 := resp.Choices[0]
	blocks := make([]core.Block, 0, len(ch0.Message.ToolCalls)+1)
	if ch0.Message.Content != "" {
		blocks = append(blocks, core.TextBlock{Text: ch0.Message.Content})
	}
	for _, tc := range ch0.Message.ToolCalls {
		input := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return model.Response{}, fmt.Errorf("decode arguments for %s: %w", tc.Function.Name, err)
			}
		}
		blocks = append(blocks, core.ToolUseBlock{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	return model.Response{
		ID:         resp.ID,
		Content:    blocks,
		StopReason: stopReason(ch0.FinishReason),
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func stopReason(finish string) string {
	switch finish {
	case "tool_calls", "function_call":
		return model.StopToolUse
	case "length":
		return model.StopMaxTokens
	default:
		return model.StopEndTurn
	}
}

// buildMessages converts conversation turns into OpenAI chat messages. Tool
// results become tool messages following the assistant message that requested them.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, turn := range req.Messages {
		var (
			text      strings.Builder
			toolCalls []openai.ChatCompletionMessageToolCallParam
			results   []openai.ChatCompletionMessageParamUnion
		)
		for _, b := range turn.Content {
			switch v := b.(type) {
			case core.TextBlock:
				text.WriteString(v.Text)
			case core.ToolUseBlock:
				args, _ := json.Marshal(v.Input)
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   v.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      v.Name,
						Arguments: string(args),
					},
				})
			case core.ToolResultBlock:
				results = append(results, openai.ToolMessage(v.Content, v.ToolUseID))
			case core.ThinkingBlock:
			}
		}

		switch {
		case turn.Role == model.RoleAssistant && len(toolCalls) > 0:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			}})
		case turn.Role == model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(text.String()))
		default:
			messages = append(messages, results...)
			if text.Len() > 0 {
				messages = append(messages, openai.UserMessage(text.String()))
			}
		}
	}
	return messages
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(req model.Request, messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	pricing := m.opts.Pricing
	if pricing == nil {
		if p, ok := prices[m.opts.Model]; ok {
			pricing = &p
		}
	}
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
		Pricing:       pricing,
	}
}

// USD per million tokens.
var prices = map[string]model.Pricing{
	openai.ChatModelGPT4oMini: {InputPerMTok: 0.15, OutputPerMTok: 0.6},
	openai.ChatModelGPT4o:     {InputPerMTok: 2.5, OutputPerMTok: 10},
	openai.ChatModelGPT4_1:    {InputPerMTok: 2, OutputPerMTok: 8},
}
