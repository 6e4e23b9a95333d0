package runtime

import (
	"context"
	"sync"

	"github.com/hupe1980/supportagent/core"
)

// Call records one Query invocation on a Scripted runtime.
type Call struct {
	Prompt  string
	Options core.Options
}

// Scripted is a deterministic core.Runtime replaying a fixed message
// sequence. It records every call and how far each run progressed.
type Scripted struct {
	mu        sync.Mutex
	messages  []core.Message
	err       error
	failAt    int
	failErr   error
	hold      bool
	calls     []Call
	produced  int
	cancelled bool
}

// NewScripted returns a runtime that emits messages in order and ends
// without error.
func NewScripted(messages ...core.Message) *Scripted {
	return &Scripted{messages: messages, failAt: -1}
}

// WithError sets the terminal error delivered after all messages.
func (s *Scripted) WithError(err error) *Scripted {
	s.err = err
	return s
}

// FailAt makes the run fail with err after n messages.
func (s *Scripted) FailAt(n int, err error) *Scripted {
	s.failAt = n
	s.failErr = err
	return s
}

// Hold keeps the run open after the last message until the context is
// cancelled.
func (s *Scripted) Hold() *Scripted {
	s.hold = true
	return s
}

// Name implements core.Runtime.
func (s *Scripted) Name() string { return "scripted" }

// Query implements core.Runtime.
func (s *Scripted) Query(ctx context.Context, prompt string, opts core.Options) (<-chan core.Message, <-chan error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Prompt: prompt, Options: opts})
	s.mu.Unlock()

	return Stream(ctx, 0, func(ctx context.Context, emit Emit) error {
		if err := opts.Validate(); err != nil {
			return err
		}

		for i, m := range s.messages {
			if i == s.failAt {
				return s.failErr
			}
			if err := emit(m); err != nil {
				s.markCancelled()
				return err
			}
			s.mu.Lock()
			s.produced++
			s.mu.Unlock()
		}

		if s.failAt >= len(s.messages) {
			return s.failErr
		}

		if s.hold {
			<-ctx.Done()
			s.markCancelled()
			return ctx.Err()
		}

		return s.err
	})
}

// Calls returns the recorded Query invocations.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Produced reports how many messages were delivered to consumers.
func (s *Scripted) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

// Cancelled reports whether a run observed context cancellation.
func (s *Scripted) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Scripted) markCancelled() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}
