package testutil

import (
	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/model"
)

// BlockBuilder provides a fluent helper for assembling content blocks in tests.
// Example:
//
//	msg := NewBlockBuilder().Text("checking").ToolUse("tu_1", "Read", map[string]any{"file_path": "a.txt"}).Assistant()
//
// Chain only the parts you need.
type BlockBuilder struct {
	blocks []core.Block
	model  string
}

// NewBlockBuilder creates an empty builder.
func NewBlockBuilder() *BlockBuilder { return &BlockBuilder{} }

// Model sets the model name reported by Assistant (chainable).
func (b *BlockBuilder) Model(name string) *BlockBuilder { b.model = name; return b }

// Text appends a text block (chainable).
func (b *BlockBuilder) Text(t string) *BlockBuilder {
	b.blocks = append(b.blocks, core.TextBlock{Text: t})
	return b
}

// Thinking appends a thinking block (chainable).
func (b *BlockBuilder) Thinking(t string) *BlockBuilder {
	b.blocks = append(b.blocks, core.ThinkingBlock{Thinking: t})
	return b
}

// ToolUse appends a tool-use block (chainable).
func (b *BlockBuilder) ToolUse(id, name string, input map[string]any) *BlockBuilder {
	b.blocks = append(b.blocks, core.ToolUseBlock{ID: id, Name: name, Input: input})
	return b
}

// ToolResult appends a tool-result block (chainable).
func (b *BlockBuilder) ToolResult(toolUseID, content string, isError bool) *BlockBuilder {
	b.blocks = append(b.blocks, core.ToolResultBlock{ToolUseID: toolUseID, Content: content, IsError: isError})
	return b
}

// Blocks returns a copy of the assembled blocks.
func (b *BlockBuilder) Blocks() []core.Block { return append([]core.Block(nil), b.blocks...) }

// Assistant builds an AssistantMessage from the blocks.
func (b *BlockBuilder) Assistant() core.AssistantMessage {
	return core.AssistantMessage{Content: b.Blocks(), Model: b.model}
}

// User builds a UserMessage from the blocks.
func (b *BlockBuilder) User() core.UserMessage {
	return core.UserMessage{Content: b.Blocks()}
}

// Response builds a model.Response from the blocks.
func (b *BlockBuilder) Response(usage model.TokenUsage) model.Response {
	return model.Response{Content: b.Blocks(), Usage: usage}
}

// AssistantText is shorthand for a single-text assistant message.
func AssistantText(t string) core.AssistantMessage {
	return NewBlockBuilder().Text(t).Assistant()
}

// ToolUse is shorthand for an assistant message holding a single tool use.
func ToolUse(id, name string, input map[string]any) core.AssistantMessage {
	return NewBlockBuilder().ToolUse(id, name, input).Assistant()
}

// TextResponse is shorthand for a model response holding a single text block.
func TextResponse(t string) model.Response {
	return NewBlockBuilder().Text(t).Response(model.TokenUsage{})
}
