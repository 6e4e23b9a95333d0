// Package builtin provides the tools the customer support profile grants the
// agent: Read, Write, Bash, TodoWrite, WebFetch, WebSearch and AskUserQuestion.
//
// File and shell tools are confined to a workspace root. Web tools use a
// shared *http.Client with a bounded timeout.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/supportagent/tool"
)

// Tool names as advertised to the model.
const (
	ToolRead            = "Read"
	ToolWrite           = "Write"
	ToolBash            = "Bash"
	ToolTodoWrite       = "TodoWrite"
	ToolWebFetch        = "WebFetch"
	ToolWebSearch       = "WebSearch"
	ToolAskUserQuestion = "AskUserQuestion"
)

const (
	DefaultBashTimeout  = 2 * time.Minute
	MaxBashTimeout      = 10 * time.Minute
	DefaultMaxReadSize  = 1 << 20
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultSearchURL    = "https://html.duckduckgo.com/html/"
	maxToolOutputChars  = 30000
	maxFetchedTextChars = 100000
)

// ErrArgumentInvalid is returned for arguments the schema cannot express.
var ErrArgumentInvalid = errors.New("tool arguments are invalid")

// Answerer resolves AskUserQuestion calls. The HTTP service has no
// interactive user, so the default answerer tells the model to proceed.
type Answerer func(ctx context.Context, questions []Question) (string, error)

// Options configures the built-in tool set.
type Options struct {
	// Workdir is the workspace root; required.
	Workdir      string
	BashTimeout  time.Duration
	MaxReadSize  int64
	HTTPClient   *http.Client
	SearchURL    string
	Answerer     Answerer
	Todos        *TodoStore
	BashDisabled bool
}

// New builds a registry with every built-in tool.
func New(optFns ...func(o *Options)) (*tool.Registry, error) {
	opts := Options{
		BashTimeout: DefaultBashTimeout,
		MaxReadSize: DefaultMaxReadSize,
		SearchURL:   DefaultSearchURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ws, err := NewWorkspace(opts.Workdir)
	if err != nil {
		return nil, err
	}
	if opts.BashTimeout <= 0 {
		opts.BashTimeout = DefaultBashTimeout
	}
	if opts.MaxReadSize <= 0 {
		opts.MaxReadSize = DefaultMaxReadSize
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if opts.Answerer == nil {
		opts.Answerer = NonInteractiveAnswerer
	}
	if opts.Todos == nil {
		opts.Todos = NewTodoStore()
	}

	reg := tool.NewRegistry(
		NewRead(ws, opts.MaxReadSize),
		NewWrite(ws),
		NewTodoWrite(opts.Todos),
		NewWebFetch(opts.HTTPClient),
		NewWebSearch(opts.HTTPClient, opts.SearchURL),
		NewAskUserQuestion(opts.Answerer),
	)
	if !opts.BashDisabled {
		reg.Register(NewBash(ws, opts.BashTimeout))
	}
	return reg, nil
}

func stringArgument(args map[string]any, key string) (string, error) {
	value, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", ErrArgumentInvalid, key)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrArgumentInvalid, key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: argument %q must not be empty", ErrArgumentInvalid, key)
	}
	return s, nil
}

func optionalInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func stringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("\n... [truncated %d characters]", len(s)-n)
}
