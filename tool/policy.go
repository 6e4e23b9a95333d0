package tool

import (
	"fmt"

	"github.com/hupe1980/supportagent/core"
)

// Authorize decides whether t may run under mode. Plan mode only admits
// read-only tools; every other mode admits any allowed tool.
func Authorize(mode core.PermissionMode, t Tool) error {
	switch mode {
	case core.PermissionPlan:
		if !t.ReadOnly() {
			return fmt.Errorf("%w: %s modifies state and the run is in plan mode", ErrPermissionDenied, t.Name())
		}
		return nil
	case core.PermissionDefault, core.PermissionAcceptEdits, core.PermissionBypass, "":
		return nil
	default:
		return fmt.Errorf("%w: unknown permission mode %q", ErrPermissionDenied, mode)
	}
}
