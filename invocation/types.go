package invocation

import (
	"errors"
	"fmt"

	"github.com/hupe1980/supportagent/core"
)

const (
	// DefaultMaxTurns is used when a request does not set max_turns.
	DefaultMaxTurns = 20
	// FallbackResponse is reported when the runtime produced no text.
	FallbackResponse = "No response received"
	// TimestampFormat is the local-time ISO-8601 layout of event timestamps.
	TimestampFormat = "2006-01-02T15:04:05.000000"
	// StatusSuccess is the status of a successful Result.
	StatusSuccess = "success"
)

// ErrInvalidRequest is returned for requests that cannot be executed.
var ErrInvalidRequest = errors.New("invalid request")

// Request is an inbound agent invocation.
type Request struct {
	Prompt   string `json:"prompt"`
	MaxTurns *int   `json:"max_turns,omitempty"`
}

// Turns returns the turn budget, applying DefaultMaxTurns.
func (r Request) Turns() int {
	if r.MaxTurns == nil {
		return DefaultMaxTurns
	}
	return *r.MaxTurns
}

// Validate checks the turn budget. The prompt is passed through unchecked.
func (r Request) Validate() error {
	if r.MaxTurns != nil && *r.MaxTurns < 1 {
		return fmt.Errorf("%w: max_turns must be a positive integer, got %d", ErrInvalidRequest, *r.MaxTurns)
	}
	return nil
}

// EventType classifies a streamed Event.
type EventType string

// Event types in the order a stream may produce them.
const (
	EventProgress EventType = "progress"
	EventResponse EventType = "response"
	EventToolUse  EventType = "tool_use"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Terminal reports whether t ends a stream.
func (t EventType) Terminal() bool { return t == EventComplete || t == EventError }

// Event is one streamed projection of runtime progress.
type Event struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Result is the aggregated outcome of a non-streaming invocation.
type Result struct {
	Status    string         `json:"status"`
	Response  string         `json:"response"`
	Usage     map[string]any `json:"usage"`
	AgentInfo map[string]any `json:"agent_info"`
}

// usageSummary projects the four reported fields of a ResultMessage. A
// missing cost is reported as null.
func usageSummary(m core.ResultMessage) map[string]any {
	var cost any
	if m.TotalCostUSD != nil {
		cost = *m.TotalCostUSD
	}
	return map[string]any{
		"duration_ms":    m.DurationMS,
		"total_cost_usd": cost,
		"num_turns":      m.NumTurns,
		"session_id":     m.SessionID,
	}
}
