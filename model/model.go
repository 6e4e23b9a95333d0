package model

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/supportagent/core"
)

// Normalized stop reasons.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// Role of a conversation turn.
type Role string

const (
	// RoleUser marks prompt text and tool results.
	RoleUser Role = "user"
	// RoleAssistant marks model output.
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation sent to the model.
type Turn struct {
	Role    Role
	Content []core.Block
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the runtime loop.
type Request struct {
	System   string
	Messages []Turn
	Tools    []ToolDefinition
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Response is the assistant output of a single model call.
type Response struct {
	ID         string
	Content    []core.Block
	StopReason string
	Usage      TokenUsage
}

// ToolUses returns the tool-use blocks of the response in order.
func (r Response) ToolUses() []core.ToolUseBlock {
	var uses []core.ToolUseBlock
	for _, b := range r.Content {
		if tu, ok := b.(core.ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// Pricing is the list price in USD per million tokens.
type Pricing struct {
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
}

// Cost prices a token usage.
func (p Pricing) Cost(u TokenUsage) float64 {
	return (float64(u.InputTokens)*p.InputPerMTok + float64(u.OutputTokens)*p.OutputPerMTok) / 1_000_000
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string   `json:"name"`
	Provider      string   `json:"provider"` // "openai", "anthropic", "scripted"
	SupportsTools bool     `json:"supports_tools"`
	Pricing       *Pricing `json:"pricing,omitempty"` // nil when unknown
}

// Model is the minimal interface required by the runtime loop to drive generation.
//
// Generate emits exactly one Response on success. The response channel is
// closed before a terminal error, if any, is sent on the error channel.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrScriptExhausted is returned by ScriptedModel when no responses remain.
var ErrScriptExhausted = errors.New("scripted model: no responses left")

// ScriptedModel is a deterministic Model that replays canned responses in
// order. It records every request for assertions.
type ScriptedModel struct {
	mu        sync.Mutex
	info      Info
	responses []Response
	errs      []error
	requests  []Request
}

// NewScriptedModel constructs a ScriptedModel replaying responses.
func NewScriptedModel(responses ...Response) *ScriptedModel {
	return &ScriptedModel{
		info:      Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		responses: responses,
	}
}

// WithPricing sets the pricing reported by Info.
func (m *ScriptedModel) WithPricing(p Pricing) *ScriptedModel {
	m.info.Pricing = &p
	return m
}

// FailWith makes the n-th Generate call (zero based) fail with err.
func (m *ScriptedModel) FailWith(n int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.errs) <= n {
		m.errs = append(m.errs, nil)
	}
	m.errs[n] = err
	return m
}

// Requests returns the requests observed so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	call := len(m.requests)
	m.requests = append(m.requests, req)
	var (
		resp    Response
		callErr error
	)
	switch {
	case call < len(m.errs) && m.errs[call] != nil:
		callErr = m.errs[call]
	case len(m.responses) == 0:
		callErr = ErrScriptExhausted
	default:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(errCh)
		if err := ctx.Err(); err != nil {
			close(out)
			errCh <- err
			return
		}
		if callErr != nil {
			close(out)
			errCh <- callErr
			return
		}
		if resp.StopReason == "" {
			resp.StopReason = StopEndTurn
			if len(resp.ToolUses()) > 0 {
				resp.StopReason = StopToolUse
			}
		}
		out <- resp
		close(out)
	}()

	return out, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// Collect drains a Generate call and returns its single response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		last Response
		got  bool
	)
	for r := range respCh {
		last = r
		got = true
	}
	if err := <-errCh; err != nil {
		return Response{}, err
	}
	if !got {
		return Response{}, errors.New("model returned no response")
	}
	return last, nil
}
