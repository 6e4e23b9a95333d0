package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportagent/core"
)

func validOptions() core.Options {
	return core.Options{MaxTurns: 3, PermissionMode: core.PermissionDefault}
}

func TestStream_ClosesMessagesBeforeError(t *testing.T) {
	boom := errors.New("boom")
	msgs, errs := Stream(context.Background(), 1, func(ctx context.Context, emit Emit) error {
		assert.NoError(t, emit(core.AssistantMessage{Content: []core.Block{core.TextBlock{Text: "a"}}}))
		return boom
	})

	var got []core.Message
	for m := range msgs {
		got = append(got, m)
	}
	assert.Len(t, got, 1)
	assert.ErrorIs(t, <-errs, boom)

	_, open := <-errs
	assert.False(t, open)
}

func TestStream_RecoversPanic(t *testing.T) {
	msgs, errs := Stream(context.Background(), 0, func(context.Context, Emit) error {
		panic("kaboom")
	})
	for range msgs {
	}
	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestStream_EmitFailsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	_, errs := Stream(ctx, 0, func(ctx context.Context, emit Emit) error {
		cancel()
		err := emit(core.UserMessage{})
		done <- err
		return err
	})

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestScripted_ReplaysMessages(t *testing.T) {
	rt := NewScripted(
		core.SystemMessage{Subtype: "init"},
		core.ResultMessage{Subtype: core.ResultSuccess, Result: "done"},
	)

	got, err := Collect(context.Background(), rt, "hello", validOptions())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, rt.Produced())

	calls := rt.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "hello", calls[0].Prompt)
	assert.Equal(t, 3, calls[0].Options.MaxTurns)
}

func TestScripted_FailAt(t *testing.T) {
	boom := errors.New("boom")
	rt := NewScripted(core.SystemMessage{}, core.SystemMessage{}).FailAt(1, boom)

	got, err := Collect(context.Background(), rt, "x", validOptions())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestScripted_FailAfterAllMessages(t *testing.T) {
	boom := errors.New("boom")
	rt := NewScripted(core.SystemMessage{}).FailAt(1, boom)

	got, err := Collect(context.Background(), rt, "x", validOptions())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestScripted_InvalidOptions(t *testing.T) {
	rt := NewScripted(core.SystemMessage{})

	got, err := Collect(context.Background(), rt, "x", core.Options{})
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
	assert.Empty(t, got)
}

func TestScripted_HoldObservesCancellation(t *testing.T) {
	rt := NewScripted(core.SystemMessage{}).Hold()
	ctx, cancel := context.WithCancel(context.Background())

	msgs, errs := rt.Query(ctx, "x", validOptions())
	<-msgs
	cancel()

	for range msgs {
	}
	assert.ErrorIs(t, <-errs, context.Canceled)
	assert.Eventually(t, rt.Cancelled, time.Second, 10*time.Millisecond)
}
