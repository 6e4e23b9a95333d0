package tool

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hupe1980/supportagent/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Arguments are validated against the JSON schema before execution. Errors are
// normalized so callers receive *ToolError with consistent codes:
//
//	VALIDATION_ERROR  -> schema / argument mismatch
//	EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//	(custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	readOnly    bool
	fn          func(tc *Context, args map[string]any) (any, error)

	compileOnce sync.Once
	schema      *jsonschema.Schema
	schemaErr   error
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(tc *Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection; see util.CreateSchema for the supported tags.
//
// Example:
//
//	type ReadArgs struct {
//	  Path string `json:"file_path" description:"File to read"`
//	}
//
//	readTool := NewFunctionToolFromStruct("Read", "Read a file", ReadArgs{},
//	  func(tc *Context, args map[string]any) (any, error) { ... },
//	).AsReadOnly()
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(tc *Context, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// AsReadOnly marks the tool as side-effect free so it stays available in plan mode.
func (t *FunctionTool) AsReadOnly() *FunctionTool {
	t.readOnly = true
	return t
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// ReadOnly reports whether the tool is side-effect free.
func (t *FunctionTool) ReadOnly() bool { return t.readOnly }

// Validate checks args against the parameter schema.
func (t *FunctionTool) Validate(args map[string]any) error {
	t.compileOnce.Do(func() {
		t.schema, t.schemaErr = compileSchema(t.parameters)
	})
	if t.schemaErr != nil {
		return t.schemaErr
	}
	if t.schema == nil {
		return nil
	}
	v, err := normalizeArgs(args)
	if err != nil {
		return err
	}
	return t.schema.Validate(v)
}

// Call validates the provided args then invokes the underlying function.
//
// Logging Fields:
//
//	tool: tool name
//	tool_use_id: correlates model request & tool execution
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(tc *Context, args map[string]any) (any, error) {
	logger := tc.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "tool_use_id", tc.ToolUseID())

	if err := t.Validate(args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			cause:   err,
		}
	}

	result, err := t.fn(tc, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, wrapToolError(t.name, CodeExecution, err)
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
