package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hupe1980/supportagent/tool"
)

// ErrBashExecutionTimedOut is returned when a command exceeds its timeout.
var ErrBashExecutionTimedOut = errors.New("bash command timed out")

type bashArgs struct {
	Command     string `json:"command" description:"The shell command to execute"`
	Timeout     int    `json:"timeout,omitempty" description:"Optional timeout in milliseconds (max 600000)"`
	Description string `json:"description,omitempty" description:"Short description of what the command does"`
}

// NewBash returns the Bash tool running commands with bash -lc in the workspace root.
func NewBash(ws Workspace, timeout time.Duration) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolBash,
		"Run a shell command in the workspace root and return its combined output.",
		bashArgs{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			command, err := stringArgument(args, "command")
			if err != nil {
				return nil, err
			}

			limit := timeout
			if ms := optionalInt(args, "timeout", 0); ms > 0 {
				limit = time.Duration(ms) * time.Millisecond
			}
			if limit > MaxBashTimeout {
				limit = MaxBashTimeout
			}

			timeoutCtx, cancel := context.WithTimeout(tc.Context(), limit)
			defer cancel()

			cmd := exec.CommandContext(timeoutCtx, "bash", "-lc", command)
			cmd.Dir = ws.Root()
			cmd.WaitDelay = time.Second

			var stdout bytes.Buffer
			var stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			tc.Logger().Debug("tool.bash.start", "command", command, "timeout", limit)

			err = cmd.Run()
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: command=%q timeout=%s stdout=%q stderr=%q",
					ErrBashExecutionTimedOut, command, limit, stdout.String(), stderr.String())
			}

			out := strings.TrimRight(stdout.String(), "\n")
			if errOut := strings.TrimRight(stderr.String(), "\n"); errOut != "" {
				if out != "" {
					out += "\n"
				}
				out += errOut
			}
			out = truncate(out, maxToolOutputChars)

			if err != nil {
				return nil, fmt.Errorf("bash command %q failed: %w\n%s", command, err, out)
			}
			return out, nil
		},
	)
}
