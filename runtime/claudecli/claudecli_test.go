package claudecli

import (
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/runtime"
)

const sampleStreamJSON = `{"type":"system","subtype":"init","session_id":"abc123","tools":["Read","Bash"],"model":"claude-sonnet-4-5"}
{"type":"assistant","message":{"model":"claude-sonnet-4-5","content":[{"type":"thinking","thinking":"hmm","signature":"sig"},{"type":"text","text":"I'll read the file first."},{"type":"tool_use","id":"tu-1","name":"Read","input":{"file_path":"/tmp/test.go"}}]}}
{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu-1","content":[{"type":"text","text":"package main"}],"is_error":false}]}}
not json at all
{"type":"stream_event","event":{}}

{"type":"assistant","message":{"model":"claude-sonnet-4-5","content":[{"type":"text","text":"The file looks good."}]}}
{"type":"result","subtype":"success","duration_ms":4500,"duration_api_ms":3900,"is_error":false,"num_turns":3,"session_id":"abc123","total_cost_usd":0.015,"usage":{"input_tokens":2500,"output_tokens":800},"result":"The file looks good."}
`

func collect(t *testing.T, input string) []core.Message {
	t.Helper()
	var got []core.Message
	err := Decode(strings.NewReader(input), func(m core.Message) error {
		got = append(got, m)
		return nil
	}, nil)
	require.NoError(t, err)
	return got
}

func TestDecode_StreamJSON(t *testing.T) {
	got := collect(t, sampleStreamJSON)
	require.Len(t, got, 5)

	sys := got[0].(core.SystemMessage)
	assert.Equal(t, "init", sys.Subtype)
	assert.Equal(t, "abc123", sys.Data["session_id"])
	assert.NotContains(t, sys.Data, "type")

	assistant := got[1].(core.AssistantMessage)
	assert.Equal(t, "claude-sonnet-4-5", assistant.Model)
	assert.Equal(t, []core.Block{
		core.ThinkingBlock{Thinking: "hmm", Signature: "sig"},
		core.TextBlock{Text: "I'll read the file first."},
		core.ToolUseBlock{ID: "tu-1", Name: "Read", Input: map[string]any{"file_path": "/tmp/test.go"}},
	}, assistant.Content)

	user := got[2].(core.UserMessage)
	assert.Equal(t, []core.Block{core.ToolResultBlock{ToolUseID: "tu-1", Content: "package main"}}, user.Content)

	res := got[4].(core.ResultMessage)
	assert.Equal(t, core.ResultSuccess, res.Subtype)
	assert.Equal(t, int64(4500), res.DurationMS)
	assert.Equal(t, int64(3900), res.DurationAPIMS)
	assert.Equal(t, 3, res.NumTurns)
	assert.Equal(t, "abc123", res.SessionID)
	require.NotNil(t, res.TotalCostUSD)
	assert.InDelta(t, 0.015, *res.TotalCostUSD, 1e-12)
	assert.Equal(t, float64(2500), res.Usage["input_tokens"])
	assert.Equal(t, "The file looks good.", res.Result)
}

func TestParseLine_StringContent(t *testing.T) {
	msg, err := ParseLine([]byte(`{"type":"user","message":{"content":"plain prompt"}}`))
	require.NoError(t, err)
	assert.Equal(t, core.UserMessage{Content: []core.Block{core.TextBlock{Text: "plain prompt"}}}, msg)
}

func TestParseLine_StringToolResultAndNullCost(t *testing.T) {
	msg, err := ParseLine([]byte(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t","content":"boom","is_error":true}]}}`))
	require.NoError(t, err)
	assert.Equal(t, core.ToolResultBlock{ToolUseID: "t", Content: "boom", IsError: true}, msg.(core.UserMessage).Content[0])

	msg, err = ParseLine([]byte(`{"type":"result","subtype":"error_max_turns","is_error":true,"total_cost_usd":null}`))
	require.NoError(t, err)
	res := msg.(core.ResultMessage)
	assert.Nil(t, res.TotalCostUSD)
	assert.True(t, res.IsError)
}

func TestParseLine_Malformed(t *testing.T) {
	_, err := ParseLine([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = ParseLine([]byte(`{"type":"assistant","message":{"content":42}}`))
	assert.Error(t, err)
}

func TestDecode_StopsOnEmitError(t *testing.T) {
	calls := 0
	err := Decode(strings.NewReader(sampleStreamJSON), func(core.Message) error {
		calls++
		return context.Canceled
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestArgs(t *testing.T) {
	rt := New(func(o *Options) { o.ExtraArgs = []string{"--model", "opus"} })
	args := rt.Args("-hello", core.Options{
		AllowedTools:   []string{"Read", "Write"},
		SystemPrompt:   "be nice",
		PermissionMode: core.PermissionPlan,
		MaxTurns:       7,
	})

	assert.Equal(t, []string{
		"--output-format", "stream-json", "--verbose",
		"--system-prompt", "be nice",
		"--allowedTools", "Read,Write",
		"--permission-mode", "plan",
		"--max-turns", "7",
		"--model", "opus",
		"--print", "--", "-hello",
	}, args)
}

// fakeCLI writes a shell script standing in for the CLI. The script records
// its arguments, working directory and entrypoint, prints output and exits
// with code.
func fakeCLI(t *testing.T, output string, code int, stderr string) (path, dir string) {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.jsonl"), []byte(output), 0o600))

	script := `#!/bin/sh
printf '%s\n' "$@" > "` + filepath.Join(dir, "args.txt") + `"
pwd > "` + filepath.Join(dir, "cwd.txt") + `"
printf '%s' "$CLAUDE_CODE_ENTRYPOINT" > "` + filepath.Join(dir, "entrypoint.txt") + `"
cat "` + filepath.Join(dir, "output.jsonl") + `"
printf '%s' "` + stderr + `" >&2
exit ` + string(rune('0'+code)) + `
`
	path = filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, dir
}

func validOptions(cwd string) core.Options {
	return core.Options{
		AllowedTools:   []string{"Read"},
		SystemPrompt:   "sys",
		PermissionMode: core.PermissionDefault,
		MaxTurns:       4,
		Cwd:            cwd,
	}
}

func TestQuery_RunsProcess(t *testing.T) {
	path, dir := fakeCLI(t, sampleStreamJSON, 0, "")
	work := t.TempDir()

	rt := New(func(o *Options) { o.Path = path })
	msgs, err := runtime.Collect(context.Background(), rt, "hello", validOptions(work))
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.IsType(t, core.ResultMessage{}, msgs[4])

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--max-turns\n4\n")
	assert.True(t, strings.HasSuffix(string(args), "--print\n--\nhello\n"))

	cwd, err := os.ReadFile(filepath.Join(dir, "cwd.txt"))
	require.NoError(t, err)
	wantCwd, err := filepath.EvalSymlinks(work)
	require.NoError(t, err)
	gotCwd, err := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	require.NoError(t, err)
	assert.Equal(t, wantCwd, gotCwd)

	entry, err := os.ReadFile(filepath.Join(dir, "entrypoint.txt"))
	require.NoError(t, err)
	assert.Equal(t, "sdk-go", string(entry))
}

func TestQuery_ProcessFailure(t *testing.T) {
	path, _ := fakeCLI(t, "", 3, "not logged in")

	rt := New(func(o *Options) { o.Path = path })
	msgs, err := runtime.Collect(context.Background(), rt, "hello", validOptions(""))
	assert.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Empty(t, msgs)
}

func TestQuery_MissingBinary(t *testing.T) {
	rt := New(func(o *Options) { o.Path = filepath.Join(t.TempDir(), "does-not-exist") })
	_, err := runtime.Collect(context.Background(), rt, "hello", validOptions(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting")
}

func TestQuery_InvalidOptions(t *testing.T) {
	rt := New()
	_, err := runtime.Collect(context.Background(), rt, "hello", core.Options{})
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{limit: 4}
	_, _ = tb.Write([]byte("abcdef"))
	_, _ = tb.Write([]byte("gh"))
	assert.Equal(t, "efgh", tb.String())
}
