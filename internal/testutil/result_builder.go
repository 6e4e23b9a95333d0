package testutil

import "github.com/hupe1980/supportagent/core"

// ResultBuilder builds core.ResultMessage values with sensible defaults:
// a successful single-turn run in session "sess-1".
type ResultBuilder struct {
	msg core.ResultMessage
}

// NewResultBuilder creates a builder for a successful result.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{msg: core.ResultMessage{
		Subtype:   core.ResultSuccess,
		NumTurns:  1,
		SessionID: "sess-1",
	}}
}

// Subtype sets the result subtype and derives IsError from it (chainable).
func (b *ResultBuilder) Subtype(s string) *ResultBuilder {
	b.msg.Subtype = s
	b.msg.IsError = s != core.ResultSuccess
	return b
}

// Duration sets the wall and API durations in milliseconds (chainable).
func (b *ResultBuilder) Duration(ms, apiMS int64) *ResultBuilder {
	b.msg.DurationMS = ms
	b.msg.DurationAPIMS = apiMS
	return b
}

// Turns sets the number of turns (chainable).
func (b *ResultBuilder) Turns(n int) *ResultBuilder { b.msg.NumTurns = n; return b }

// Session sets the session ID (chainable).
func (b *ResultBuilder) Session(id string) *ResultBuilder { b.msg.SessionID = id; return b }

// Cost sets the total cost in USD (chainable).
func (b *ResultBuilder) Cost(usd float64) *ResultBuilder { b.msg.TotalCostUSD = &usd; return b }

// Text sets the final result text (chainable).
func (b *ResultBuilder) Text(t string) *ResultBuilder { b.msg.Result = t; return b }

// Build returns the ResultMessage.
func (b *ResultBuilder) Build() core.ResultMessage { return b.msg }
