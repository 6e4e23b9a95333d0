package core

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid runtime options")

// PermissionMode controls which tool effects a runtime may perform without
// asking for confirmation.
type PermissionMode string

const (
	// PermissionDefault allows every tool listed in Options.AllowedTools.
	PermissionDefault PermissionMode = "default"
	// PermissionAcceptEdits behaves like default and auto-accepts file edits.
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	// PermissionPlan restricts the runtime to read-only tools.
	PermissionPlan PermissionMode = "plan"
	// PermissionBypass skips every permission check.
	PermissionBypass PermissionMode = "bypassPermissions"
)

// ParsePermissionMode maps the textual mode to a PermissionMode.
func ParsePermissionMode(s string) (PermissionMode, error) {
	switch m := PermissionMode(s); m {
	case PermissionDefault, PermissionAcceptEdits, PermissionPlan, PermissionBypass:
		return m, nil
	case "":
		return PermissionDefault, nil
	default:
		return "", fmt.Errorf("%w: unsupported permission mode %q (allowed: default, acceptEdits, plan, bypassPermissions)", ErrInvalidOptions, s)
	}
}

// Options is the per-query runtime configuration.
type Options struct {
	AllowedTools   []string
	SystemPrompt   string
	PermissionMode PermissionMode
	MaxTurns       int
	// Cwd is the working directory for the runtime; empty means the process cwd.
	Cwd string
}

// Validate checks the options for internal consistency.
func (o Options) Validate() error {
	if o.MaxTurns < 1 {
		return fmt.Errorf("%w: max turns must be positive, got %d", ErrInvalidOptions, o.MaxTurns)
	}
	if _, err := ParsePermissionMode(string(o.PermissionMode)); err != nil {
		return err
	}
	for _, name := range o.AllowedTools {
		if name == "" {
			return fmt.Errorf("%w: empty tool name", ErrInvalidOptions)
		}
	}
	return nil
}

// Allows reports whether the named tool is in AllowedTools.
func (o Options) Allows(tool string) bool {
	for _, name := range o.AllowedTools {
		if name == tool {
			return true
		}
	}
	return false
}
