// Package claudecli implements core.Runtime by running the Claude Code CLI
// in print mode and decoding its stream-json output.
package claudecli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/logging"
	"github.com/hupe1980/supportagent/runtime"
)

// DefaultPath is the CLI binary looked up on PATH when Options.Path is empty.
const DefaultPath = "claude"

// stderrTail bounds how much CLI stderr is kept for error reports.
const stderrTail = 4 << 10

// ErrProcessFailed is returned when the CLI exits unsuccessfully.
var ErrProcessFailed = errors.New("claude cli process failed")

// Options configures a Runtime.
type Options struct {
	// Path is the CLI executable; defaults to DefaultPath.
	Path string
	// ExtraArgs are appended before the prompt separator.
	ExtraArgs []string
	// Env is appended to the inherited process environment.
	Env    []string
	Logger logging.Logger
	// WaitDelay bounds how long output pipes are drained after the process
	// is killed.
	WaitDelay time.Duration
}

// Runtime runs one CLI process per query.
type Runtime struct {
	opts Options
}

// New constructs a Runtime.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Path:      DefaultPath,
		WaitDelay: time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runtime{opts: opts}
}

// Name implements core.Runtime.
func (r *Runtime) Name() string { return "claude-cli" }

// Query implements core.Runtime.
func (r *Runtime) Query(ctx context.Context, prompt string, opts core.Options) (<-chan core.Message, <-chan error) {
	return runtime.Stream(ctx, 0, func(ctx context.Context, emit runtime.Emit) error {
		return r.run(ctx, prompt, opts, emit)
	})
}

// Args returns the CLI arguments for a query.
func (r *Runtime) Args(prompt string, opts core.Options) []string {
	args := []string{"--output-format", "stream-json", "--verbose"}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}
	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", string(opts.PermissionMode))
	}
	args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
	args = append(args, r.opts.ExtraArgs...)

	return append(args, "--print", "--", prompt)
}

func (r *Runtime) run(ctx context.Context, prompt string, opts core.Options, emit runtime.Emit) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.opts.Path, r.Args(prompt, opts)...)
	cmd.Dir = opts.Cwd
	cmd.Env = append(os.Environ(), r.opts.Env...)
	cmd.Env = append(cmd.Env, "CLAUDE_CODE_ENTRYPOINT=sdk-go")
	cmd.WaitDelay = r.opts.WaitDelay

	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.opts.Path, err)
	}

	r.opts.Logger.Debug("runtime.claudecli.start", "path", r.opts.Path, "pid", cmd.Process.Pid, "cwd", opts.Cwd)

	decodeErr := Decode(stdout, emit, r.opts.Logger)
	if decodeErr != nil {
		_ = cmd.Process.Kill()
	}

	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	if waitErr != nil {
		r.opts.Logger.Error("runtime.claudecli.failed", "error", waitErr, "stderr", stderr.String())
		return fmt.Errorf("%w: %v: %s", ErrProcessFailed, waitErr, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf.Write(p)
	if extra := t.buf.Len() - t.limit; extra > 0 {
		t.buf.Next(extra)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
