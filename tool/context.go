package tool

import (
	"context"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/logging"
)

// Context is the per-call execution context handed to a tool.
type Context struct {
	ctx       context.Context
	toolUseID string
	sessionID string
	workdir   string
	mode      core.PermissionMode
	logger    logging.Logger
}

// ContextOptions configures a Context.
type ContextOptions struct {
	SessionID      string
	Workdir        string
	PermissionMode core.PermissionMode
	Logger         logging.Logger
}

// NewContext builds a tool Context for the tool-use request toolUseID.
func NewContext(ctx context.Context, toolUseID string, optFns ...func(o *ContextOptions)) *Context {
	opts := ContextOptions{PermissionMode: core.PermissionDefault}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Context{
		ctx:       ctx,
		toolUseID: toolUseID,
		sessionID: opts.SessionID,
		workdir:   opts.Workdir,
		mode:      opts.PermissionMode,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Context returns the cancellation context of the run.
func (c *Context) Context() context.Context { return c.ctx }

// ToolUseID correlates the call with the model's tool-use block.
func (c *Context) ToolUseID() string { return c.toolUseID }

// SessionID identifies the runtime session the call belongs to.
func (c *Context) SessionID() string { return c.sessionID }

// Workdir is the workspace root file tools are confined to.
func (c *Context) Workdir() string { return c.workdir }

// PermissionMode is the mode of the current run.
func (c *Context) PermissionMode() core.PermissionMode { return c.mode }

// Logger returns a non-nil logger.
func (c *Context) Logger() logging.Logger { return c.logger }
