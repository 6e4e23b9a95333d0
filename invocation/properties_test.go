package invocation

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/internal/testutil"
	"github.com/hupe1980/supportagent/runtime"
)

// Message kinds used to build scripts from generated integers.
const (
	kindText = iota
	kindToolUse
	kindResult
	kindSystem
	kindMixed
)

// script turns generated kinds into a deterministic message sequence.
func script(kinds []int) []core.Message {
	msgs := make([]core.Message, 0, len(kinds))
	for i, k := range kinds {
		switch k {
		case kindText:
			msgs = append(msgs, testutil.AssistantText(fmt.Sprintf("text-%d", i)))
		case kindToolUse:
			msgs = append(msgs, testutil.ToolUse(fmt.Sprintf("tu-%d", i), "Read", map[string]any{"n": i}))
		case kindResult:
			msgs = append(msgs, testutil.NewResultBuilder().Session(fmt.Sprintf("sess-%d", i)).Turns(i).Build())
		case kindSystem:
			msgs = append(msgs, core.SystemMessage{Subtype: "init"})
		default:
			msgs = append(msgs, testutil.NewBlockBuilder().
				Text(fmt.Sprintf("a-%d", i)).
				ToolUse(fmt.Sprintf("tu-%d", i), "Bash", nil).
				Text(fmt.Sprintf("b-%d", i)).
				Assistant())
		}
	}
	return msgs
}

// expected computes the folded text and usage by walking the script up to the
// first result.
func expected(msgs []core.Message) (string, map[string]any) {
	var parts []string
	usage := map[string]any{}
	for _, m := range msgs {
		switch v := m.(type) {
		case core.AssistantMessage:
			for _, b := range v.Content {
				if tb, ok := b.(core.TextBlock); ok {
					parts = append(parts, tb.Text)
				}
			}
		case core.ResultMessage:
			return join(parts), usageSummary(v)
		}
	}
	return join(parts), usage
}

func join(parts []string) string {
	if len(parts) == 0 {
		return FallbackResponse
	}
	return strings.Join(parts, "\n")
}

func kindsGen() gopter.Gen {
	return gen.SliceOf(gen.IntRange(kindText, kindMixed))
}

func properties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return gopter.NewProperties(parameters)
}

func TestQueryFoldProperty(t *testing.T) {
	t.Helper()

	props := properties()

	props.Property("Query joins text up to the first result", prop.ForAll(
		func(kinds []int) bool {
			msgs := script(kinds)
			wantText, wantUsage := expected(msgs)

			res, err := newAdapter(runtime.NewScripted(msgs...)).Query(context.Background(), Request{})
			if err != nil {
				return false
			}
			return res.Response == wantText && reflect.DeepEqual(res.Usage, wantUsage)
		},
		kindsGen(),
	))

	props.TestingRun(t)
}

func TestStreamQueryConsistencyProperty(t *testing.T) {
	t.Helper()

	props := properties()

	props.Property("Stream and Query aggregate identically", prop.ForAll(
		func(kinds []int) bool {
			msgs := script(kinds)

			res, err := newAdapter(runtime.NewScripted(msgs...)).Query(context.Background(), Request{})
			if err != nil {
				return false
			}

			var events []Event
			err = newAdapter(runtime.NewScripted(msgs...)).Stream(context.Background(), Request{}, func(ev Event) error {
				events = append(events, ev)
				return nil
			})
			if err != nil || len(events) == 0 {
				return false
			}

			last := events[len(events)-1]
			return last.Type == EventComplete &&
				last.Data["response"] == res.Response &&
				reflect.DeepEqual(last.Data["usage"], res.Usage)
		},
		kindsGen(),
	))

	props.TestingRun(t)
}

func TestStreamShapeProperty(t *testing.T) {
	t.Helper()

	props := properties()

	props.Property("Stream emits two progress events, projections, then one terminal event", prop.ForAll(
		func(kinds []int, fail bool) bool {
			msgs := script(kinds)
			rt := runtime.NewScripted(msgs...)
			if fail {
				rt = rt.FailAt(len(msgs), fmt.Errorf("boom"))
			}

			var events []Event
			if err := newAdapter(rt).Stream(context.Background(), Request{}, func(ev Event) error {
				events = append(events, ev)
				return nil
			}); err != nil {
				return false
			}

			if len(events) < 3 || events[0].Type != EventProgress || events[1].Type != EventProgress {
				return false
			}

			terminals := 0
			for _, ev := range events {
				if ev.Type.Terminal() {
					terminals++
				}
			}
			if terminals != 1 || !events[len(events)-1].Type.Terminal() {
				return false
			}

			// A result before the end truncates the run, so the failure is
			// never observed.
			_, usage := expected(msgs)
			truncated := len(usage) > 0
			want := EventComplete
			if fail && !truncated {
				want = EventError
			}
			return events[len(events)-1].Type == want
		},
		kindsGen(),
		gen.Bool(),
	))

	props.TestingRun(t)
}

func TestTruncationIdempotenceProperty(t *testing.T) {
	t.Helper()

	props := properties()

	props.Property("messages after the first result never change the outcome", prop.ForAll(
		func(prefix, suffix []int) bool {
			head := append(script(prefix), testutil.NewResultBuilder().Session("cut").Build())
			full := append(append([]core.Message{}, head...), script(suffix)...)

			a, err := newAdapter(runtime.NewScripted(head...)).Query(context.Background(), Request{})
			if err != nil {
				return false
			}
			b, err := newAdapter(runtime.NewScripted(full...)).Query(context.Background(), Request{})
			if err != nil {
				return false
			}
			return reflect.DeepEqual(a, b)
		},
		kindsGen(),
		kindsGen(),
	))

	props.TestingRun(t)
}
