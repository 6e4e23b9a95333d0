// Package local implements core.Runtime in-process: it drives a model.Model
// through the request -> model -> tool loop and executes tool calls against a
// tool.Registry.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/internal/util"
	"github.com/hupe1980/supportagent/logging"
	"github.com/hupe1980/supportagent/model"
	"github.com/hupe1980/supportagent/runtime"
	"github.com/hupe1980/supportagent/tool"
)

// DefaultMaxParallelTools bounds concurrent tool executions within one turn.
const DefaultMaxParallelTools = 4

// Options configures a Runtime.
type Options struct {
	Logger logging.Logger
	// MaxParallelTools limits concurrent tool calls per turn; values < 1 use
	// DefaultMaxParallelTools.
	MaxParallelTools int
	// Buffer is the message channel capacity.
	Buffer int
	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
	// NewSessionID generates session identifiers; defaults to uuid.NewString.
	NewSessionID func() string
}

// Runtime is the in-process agent loop.
type Runtime struct {
	model model.Model
	tools *tool.Registry
	opts  Options
}

// New constructs a Runtime over m and the tools in registry.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		MaxParallelTools: DefaultMaxParallelTools,
		Clock:            time.Now,
		NewSessionID:     uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxParallelTools < 1 {
		opts.MaxParallelTools = DefaultMaxParallelTools
	}
	if registry == nil {
		registry = tool.NewRegistry()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runtime{model: m, tools: registry, opts: opts}
}

// Name implements core.Runtime.
func (r *Runtime) Name() string { return "local" }

// Query implements core.Runtime.
func (r *Runtime) Query(ctx context.Context, prompt string, opts core.Options) (<-chan core.Message, <-chan error) {
	return runtime.Stream(ctx, r.opts.Buffer, func(ctx context.Context, emit runtime.Emit) error {
		return r.run(ctx, prompt, opts, emit)
	})
}

func (r *Runtime) run(ctx context.Context, prompt string, opts core.Options, emit runtime.Emit) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	start := r.opts.Clock()
	sessionID := r.opts.NewSessionID()
	info := r.model.Info()

	system, err := util.RenderPrompt(opts.SystemPrompt, map[string]any{
		"cwd":        opts.Cwd,
		"date":       start.Format(time.DateOnly),
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("render system prompt: %w", err)
	}

	if err := emit(core.SystemMessage{
		Subtype: "init",
		Data: map[string]any{
			"session_id":      sessionID,
			"model":           info.Name,
			"tools":           append([]string(nil), opts.AllowedTools...),
			"cwd":             opts.Cwd,
			"permission_mode": string(opts.PermissionMode),
		},
	}); err != nil {
		return err
	}

	r.opts.Logger.Info("runtime.local.start", "session_id", sessionID, "model", info.Name, "max_turns", opts.MaxTurns)

	req := model.Request{
		System: system,
		Messages: []model.Turn{{
			Role:    model.RoleUser,
			Content: []core.Block{core.TextBlock{Text: prompt}},
		}},
		Tools: r.tools.Definitions(opts.AllowedTools),
	}

	var (
		usage    model.TokenUsage
		apiTime  time.Duration
		lastText string
	)

	result := func(subtype string, turns int) core.ResultMessage {
		msg := core.ResultMessage{
			Subtype:       subtype,
			DurationMS:    r.opts.Clock().Sub(start).Milliseconds(),
			DurationAPIMS: apiTime.Milliseconds(),
			IsError:       subtype != core.ResultSuccess,
			NumTurns:      turns,
			SessionID:     sessionID,
			Usage: map[string]any{
				"input_tokens":  usage.InputTokens,
				"output_tokens": usage.OutputTokens,
			},
			Result: lastText,
		}
		if info.Pricing != nil {
			cost := info.Pricing.Cost(usage)
			msg.TotalCostUSD = &cost
		}
		return msg
	}

	for turn := 1; turn <= opts.MaxTurns; turn++ {
		callStart := r.opts.Clock()
		resp, err := model.Collect(ctx, r.model, req)
		apiTime += r.opts.Clock().Sub(callStart)
		if err != nil {
			r.opts.Logger.Error("runtime.local.model.error", "session_id", sessionID, "turn", turn, "error", err)
			return err
		}
		usage = usage.Add(resp.Usage)

		content := assignToolUseIDs(resp.Content)
		if text := joinText(content); text != "" {
			lastText = text
		}

		if err := emit(core.AssistantMessage{Content: content, Model: info.Name}); err != nil {
			return err
		}
		req.Messages = append(req.Messages, model.Turn{Role: model.RoleAssistant, Content: content})

		uses := toolUses(content)
		if len(uses) == 0 {
			return emit(result(core.ResultSuccess, turn))
		}

		results := r.executeTools(ctx, sessionID, opts, uses)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(core.UserMessage{Content: results}); err != nil {
			return err
		}
		req.Messages = append(req.Messages, model.Turn{Role: model.RoleUser, Content: results})
	}

	r.opts.Logger.Warn("runtime.local.max_turns", "session_id", sessionID, "max_turns", opts.MaxTurns)

	return emit(result(core.ResultErrorMaxTurns, opts.MaxTurns))
}

// executeTools runs the tool calls of one turn concurrently and returns one
// result block per call, in call order.
func (r *Runtime) executeTools(ctx context.Context, sessionID string, opts core.Options, uses []core.ToolUseBlock) []core.Block {
	results := make([]core.Block, len(uses))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxParallelTools)

	batchStart := r.opts.Clock()
	for i, use := range uses {
		g.Go(func() error {
			results[i] = r.executeTool(ctx, sessionID, opts, use)
			return nil
		})
	}
	_ = g.Wait()

	r.opts.Logger.Debug("runtime.local.tools.batch", "session_id", sessionID, "count", len(uses), "duration_ms", r.opts.Clock().Sub(batchStart).Milliseconds())

	return results
}

func (r *Runtime) executeTool(ctx context.Context, sessionID string, opts core.Options, use core.ToolUseBlock) (block core.ToolResultBlock) {
	block.ToolUseID = use.ID

	tc := tool.NewContext(ctx, use.ID, func(o *tool.ContextOptions) {
		o.SessionID = sessionID
		o.Workdir = opts.Cwd
		o.PermissionMode = opts.PermissionMode
		o.Logger = r.opts.Logger
	})

	start := r.opts.Clock()
	out, err := r.tools.Execute(tc, opts.AllowedTools, use.Name, use.Input)
	r.opts.Logger.Info("runtime.local.tool.executed", "tool", use.Name, "tool_use_id", use.ID, "duration_ms", r.opts.Clock().Sub(start).Milliseconds(), "error", err != nil)

	if err != nil {
		block.Content = err.Error()
		block.IsError = true
		return block
	}
	block.Content = stringify(out)
	return block
}

// assignToolUseIDs gives every tool-use block without an ID a fresh one.
func assignToolUseIDs(content []core.Block) []core.Block {
	out := make([]core.Block, len(content))
	for i, b := range content {
		if tu, ok := b.(core.ToolUseBlock); ok && tu.ID == "" {
			tu.ID = "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			b = tu
		}
		out[i] = b
	}
	return out
}

func toolUses(content []core.Block) []core.ToolUseBlock {
	var uses []core.ToolUseBlock
	for _, b := range content {
		if tu, ok := b.(core.ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

func joinText(content []core.Block) string {
	var parts []string
	for _, b := range content {
		if tb, ok := b.(core.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// stringify renders a tool result for the model: strings verbatim, anything
// else as JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
