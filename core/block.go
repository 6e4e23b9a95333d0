package core

// Block represents a typed fragment of message content. Concrete block types
// implement the unexported isBlock marker enabling a closed set.
type Block interface{ isBlock() }

// TextBlock is plain textual output.
type TextBlock struct {
	Text string `json:"text"`
}

// isBlock implements the Block interface for TextBlock.
func (TextBlock) isBlock() {}

// ThinkingBlock carries model reasoning that is not part of the answer.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

// isBlock implements the Block interface for ThinkingBlock.
func (ThinkingBlock) isBlock() {}

// ToolUseBlock is a request by the model to invoke a tool.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// isBlock implements the Block interface for ToolUseBlock.
func (ToolUseBlock) isBlock() {}

// ToolResultBlock is the outcome of a tool invocation fed back to the model.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// isBlock implements the Block interface for ToolResultBlock.
func (ToolResultBlock) isBlock() {}
