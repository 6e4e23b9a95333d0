package invocation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/logging"
	"github.com/hupe1980/supportagent/profile"
	"github.com/hupe1980/supportagent/telemetry"
)

const (
	metricEvents   = "supportagent.invocation.events"
	metricDuration = "supportagent.invocation.duration"
)

// errStopped ends an Events iteration early.
var errStopped = errors.New("invocation: consumer stopped")

// Options configures an Adapter.
type Options struct {
	Logger    logging.Logger
	Telemetry telemetry.Telemetry
	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
	// Cwd is the working directory handed to the runtime.
	Cwd string
}

// Adapter invokes a runtime with the fixed configuration of a profile.
type Adapter struct {
	runtime core.Runtime
	profile *profile.Profile
	opts    Options
}

// NewAdapter constructs an Adapter.
func NewAdapter(rt core.Runtime, p *profile.Profile, optFns ...func(o *Options)) *Adapter {
	opts := Options{Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Telemetry = opts.Telemetry.OrNoop()

	return &Adapter{runtime: rt, profile: p, opts: opts}
}

// Profile returns the agent profile the adapter runs with.
func (a *Adapter) Profile() *profile.Profile { return a.profile }

// RuntimeName returns the name of the underlying runtime.
func (a *Adapter) RuntimeName() string { return a.runtime.Name() }

// RuntimeOptions builds the runtime configuration for req.
func (a *Adapter) RuntimeOptions(req Request) (core.Options, error) {
	if err := req.Validate(); err != nil {
		return core.Options{}, err
	}
	opts := a.profile.RuntimeOptions(req.Turns(), a.opts.Cwd)
	if err := opts.Validate(); err != nil {
		return core.Options{}, err
	}
	return opts, nil
}

// Query runs the agent to completion and returns the aggregated result.
func (a *Adapter) Query(ctx context.Context, req Request) (*Result, error) {
	start := a.opts.Clock()
	ctx, span := a.startSpan(ctx, "invocation.query", "query", req)
	defer span.End()

	a.opts.Logger.Info("invocation.query.start", "agent", a.profile.ID(), "runtime", a.runtime.Name(), "max_turns", req.Turns())

	opts, err := a.RuntimeOptions(req)
	if err != nil {
		a.fail(span, "query", start, err)
		return nil, err
	}

	acc, err := a.consume(ctx, req.Prompt, opts, visitor{})
	if err != nil {
		a.fail(span, "query", start, err)
		return nil, err
	}

	a.succeed(span, "query", start)

	return &Result{
		Status:    StatusSuccess,
		Response:  acc.response(),
		Usage:     acc.usageSummary(),
		AgentInfo: a.profile.Identity(),
	}, nil
}

// Stream runs the agent and hands each projected Event to emit, in order.
// Exactly one terminal event (complete or error) is emitted unless emit
// itself fails, in which case the run is cancelled and emit's error returned.
func (a *Adapter) Stream(ctx context.Context, req Request, emit func(Event) error) error {
	start := a.opts.Clock()
	ctx, span := a.startSpan(ctx, "invocation.stream", "stream", req)
	defer span.End()

	send := func(t EventType, data map[string]any) error {
		a.opts.Telemetry.Metrics.IncCounter(metricEvents, 1, "type", string(t))
		span.AddEvent(string(t))
		if err := emit(Event{Type: t, Data: data, Timestamp: a.timestamp()}); err != nil {
			return &sinkError{err: err}
		}
		return nil
	}

	err := a.stream(ctx, req, send)
	if err == nil {
		a.succeed(span, "stream", start)
		return nil
	}

	var sink *sinkError
	if errors.As(err, &sink) {
		a.opts.Logger.Debug("invocation.stream.sink_closed", "error", sink.err)
		a.fail(span, "stream", start, sink.err)
		return sink.err
	}

	a.fail(span, "stream", start, err)

	return unwrapSink(send(EventError, map[string]any{
		"error":   err.Error(),
		"message": fmt.Sprintf("[ERROR] Error: %s", err),
		"status":  "failed",
	}))
}

func (a *Adapter) stream(ctx context.Context, req Request, send func(EventType, map[string]any) error) error {
	a.opts.Logger.Info("invocation.stream.start", "agent", a.profile.ID(), "runtime", a.runtime.Name(), "max_turns", req.Turns())

	if err := send(EventProgress, map[string]any{
		"message": fmt.Sprintf("[AGENT] Starting %s...", a.profile.Name()),
		"agent":   a.profile.Name(),
		"status":  "initializing",
	}); err != nil {
		return err
	}

	opts, err := a.RuntimeOptions(req)
	if err != nil {
		return err
	}

	if err := send(EventProgress, map[string]any{
		"message": "[PROCESSING] Processing your request...",
		"status":  "processing",
	}); err != nil {
		return err
	}

	acc, err := a.consume(ctx, req.Prompt, opts, visitor{
		text: func(text string) error {
			return send(EventResponse, map[string]any{
				"content": text,
				"partial": true,
				"message": "[THINKING] Agent thinking...",
			})
		},
		toolUse: func(b core.ToolUseBlock) error {
			return send(EventToolUse, map[string]any{
				"tool":    b.Name,
				"input":   b.Input,
				"message": fmt.Sprintf("[TOOL] Using %s tool...", b.Name),
				"status":  "executing",
			})
		},
	})
	if err != nil {
		return err
	}

	return send(EventComplete, map[string]any{
		"response":   acc.response(),
		"usage":      acc.usageSummary(),
		"status":     "completed",
		"message":    "[SUCCESS] Task completed successfully!",
		"agent_info": a.profile.Identity(),
	})
}

// Events adapts Stream to a range-over-func sequence. Breaking out of the
// loop cancels the run.
func (a *Adapter) Events(ctx context.Context, req Request) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		_ = a.Stream(ctx, req, func(ev Event) error {
			if !yield(ev) {
				return errStopped
			}
			return nil
		})
	}
}

func (a *Adapter) timestamp() string {
	return a.opts.Clock().Format(TimestampFormat)
}

func (a *Adapter) startSpan(ctx context.Context, name, mode string, req Request) (context.Context, telemetry.Span) {
	return a.opts.Telemetry.Tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("max_turns", req.Turns()),
		attribute.String("runtime", a.runtime.Name()),
	))
}

func (a *Adapter) succeed(span telemetry.Span, mode string, start time.Time) {
	elapsed := a.opts.Clock().Sub(start)
	span.SetStatus(codes.Ok, "")
	a.opts.Telemetry.Metrics.RecordTimer(metricDuration, elapsed, "mode", mode, "status", "success")
	a.opts.Logger.Info("invocation."+mode+".complete", "duration_ms", elapsed.Milliseconds())
}

func (a *Adapter) fail(span telemetry.Span, mode string, start time.Time, err error) {
	elapsed := a.opts.Clock().Sub(start)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	a.opts.Telemetry.Metrics.RecordTimer(metricDuration, elapsed, "mode", mode, "status", "error")
	a.opts.Logger.Error("invocation."+mode+".failed", "duration_ms", elapsed.Milliseconds(), "error", err)
}

// sinkError marks failures of the event consumer, as opposed to the runtime.
type sinkError struct{ err error }

func (e *sinkError) Error() string { return e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

func unwrapSink(err error) error {
	var sink *sinkError
	if errors.As(err, &sink) {
		return sink.err
	}
	return err
}

// accumulator folds assistant text and the usage of the first result.
type accumulator struct {
	parts []string
	usage map[string]any
}

func (acc *accumulator) response() string {
	if len(acc.parts) == 0 {
		return FallbackResponse
	}
	return strings.Join(acc.parts, "\n")
}

func (acc *accumulator) usageSummary() map[string]any {
	if acc.usage == nil {
		return map[string]any{}
	}
	return acc.usage
}
