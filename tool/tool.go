// Package tool implements the tool calling subsystem the local runtime uses to
// let the model invoke structured capabilities (file access, shell, web) with
// schema validated arguments, permission checks and consistent error handling.
package tool

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotAllowed is returned when a tool is not in the allowed list.
	ErrToolNotAllowed = errors.New("tool not allowed")
	// ErrPermissionDenied is returned when the permission mode forbids a tool.
	ErrPermissionDenied = errors.New("permission denied")
)

// Tool defines the interface for extending the agent with callable capabilities.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier the model uses to call the tool.
	Name() string

	// Description is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// ReadOnly reports whether the tool is free of side effects.
	ReadOnly() bool

	// Call executes the tool with already decoded arguments.
	Call(tc *Context, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeExecution        = "EXECUTION_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
	cause   error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

func wrapToolError(tool, code string, cause error) *ToolError {
	return &ToolError{Tool: tool, Message: cause.Error(), Code: code, cause: cause}
}
