package invocation

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportagent/core"
)

// visitor receives the projected content blocks while messages are folded.
// Nil callbacks are skipped.
type visitor struct {
	text    func(string) error
	toolUse func(core.ToolUseBlock) error
}

// consume starts the runtime and folds its messages until the first
// ResultMessage or the end of the sequence. Stopping early cancels the run;
// the runtime's terminal error is then never observed.
func (a *Adapter) consume(ctx context.Context, prompt string, opts core.Options, v visitor) (*accumulator, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, errs := a.runtime.Query(runCtx, prompt, opts)

	acc := &accumulator{}
	for msg := range msgs {
		switch m := msg.(type) {
		case core.AssistantMessage:
			if err := a.visitBlocks(acc, m.Content, v); err != nil {
				return nil, err
			}
		case core.ResultMessage:
			acc.usage = usageSummary(m)
			a.opts.Logger.Debug("invocation.result", "subtype", m.Subtype, "num_turns", m.NumTurns, "session_id", m.SessionID)
			return acc, nil
		case core.UserMessage, core.SystemMessage:
		default:
			a.opts.Logger.Warn("invocation.message.unhandled", "type", fmt.Sprintf("%T", msg))
		}
	}

	if err := <-errs; err != nil {
		return nil, err
	}
	return acc, nil
}

func (a *Adapter) visitBlocks(acc *accumulator, blocks []core.Block, v visitor) error {
	for _, block := range blocks {
		switch b := block.(type) {
		case core.TextBlock:
			acc.parts = append(acc.parts, b.Text)
			if v.text != nil {
				if err := v.text(b.Text); err != nil {
					return err
				}
			}
		case core.ToolUseBlock:
			if v.toolUse != nil {
				if err := v.toolUse(b); err != nil {
					return err
				}
			}
		case core.ThinkingBlock, core.ToolResultBlock:
		default:
			a.opts.Logger.Warn("invocation.block.unhandled", "type", fmt.Sprintf("%T", block))
		}
	}
	return nil
}
