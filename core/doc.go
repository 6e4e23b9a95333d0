// Package core provides the foundational domain types shared by the agent
// runtimes and the invocation layer:
//
//   - Message (AssistantMessage, UserMessage, SystemMessage, ResultMessage)
//   - Block (TextBlock, ThinkingBlock, ToolUseBlock, ToolResultBlock)
//   - Options handed to a Runtime for a single query
//   - Runtime, the asynchronous agent execution contract
//
// Message and Block are closed sum types: concrete variants implement an
// unexported marker method so consumers can switch over them exhaustively.
package core
