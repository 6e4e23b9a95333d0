package core

import "context"

// Runtime executes an agent query and streams its messages.
//
// Query returns immediately. The message channel is closed when the run ends;
// afterwards at most one terminal error is delivered on the error channel,
// which is then closed as well. Implementations stop producing when ctx is
// cancelled and report ctx.Err() as the terminal error.
type Runtime interface {
	// Name identifies the runtime implementation (e.g. "claude-cli").
	Name() string
	Query(ctx context.Context, prompt string, opts Options) (<-chan Message, <-chan error)
}
