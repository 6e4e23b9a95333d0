// Package runtime provides the plumbing shared by core.Runtime
// implementations: the channel-pair producer helper, a collector, and a
// deterministic scripted runtime for tests.
package runtime

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportagent/core"
)

// Emit delivers one message to the consumer. It fails with the context error
// once the consumer has gone away.
type Emit func(core.Message) error

// Stream runs produce in a goroutine and adapts it to the core.Runtime
// channel contract: the message channel is closed first, then the error
// returned by produce (if any) is delivered and the error channel closed.
// A panic in produce is reported as the terminal error.
func Stream(ctx context.Context, buffer int, produce func(ctx context.Context, emit Emit) error) (<-chan core.Message, <-chan error) {
	if buffer < 0 {
		buffer = 0
	}

	msgs := make(chan core.Message, buffer)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("runtime panic: %v", r)
				}
			}()
			err = produce(ctx, func(m core.Message) error {
				select {
				case msgs <- m:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}()

		close(msgs)
		if err != nil {
			errs <- err
		}
	}()

	return msgs, errs
}

// Collect drains a query and returns every message together with the
// terminal error.
func Collect(ctx context.Context, rt core.Runtime, prompt string, opts core.Options) ([]core.Message, error) {
	msgs, errs := rt.Query(ctx, prompt, opts)

	var out []core.Message
	for m := range msgs {
		out = append(out, m)
	}

	return out, <-errs
}
