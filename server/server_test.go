package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportagent/artifact"
	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/internal/testutil"
	"github.com/hupe1980/supportagent/invocation"
	"github.com/hupe1980/supportagent/profile"
	"github.com/hupe1980/supportagent/runtime"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 8000, time.Local)

func newServer(t *testing.T, rt core.Runtime, files artifact.Store, optFns ...func(o *Options)) *Server {
	t.Helper()
	if files == nil {
		files = artifact.NewInMemoryStore()
	}
	adapter := invocation.NewAdapter(rt, profile.Default(), func(o *invocation.Options) {
		o.Clock = func() time.Time { return fixedNow }
	})
	fns := append([]func(o *Options){func(o *Options) { o.Clock = func() time.Time { return fixedNow } }}, optFns...)
	return New(adapter, files, fns...)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sseEvents(t *testing.T, body string) []invocation.Event {
	t.Helper()
	var events []invocation.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		require.True(t, ok, "unexpected SSE line %q", line)
		var ev invocation.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func abRuntime() *runtime.Scripted {
	return runtime.NewScripted(
		testutil.AssistantText("A"),
		testutil.AssistantText("B"),
		testutil.NewResultBuilder().Duration(900, 700).Turns(2).Session("sess-9").Cost(0.5).Build(),
	)
}

func TestRoot(t *testing.T) {
	rec := do(t, newServer(t, runtime.NewScripted(), nil), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	p := profile.Default()
	assert.Equal(t, "Welcome to "+p.Name(), body["message"])
	assert.Equal(t, p.ID(), body["agent_id"])
	assert.Len(t, body["endpoints"], 4)
}

func TestInfo(t *testing.T) {
	body := decode(t, do(t, newServer(t, runtime.NewScripted(), nil), http.MethodGet, "/info", ""))

	p := profile.Default()
	assert.Equal(t, p.ID(), body["agent_id"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "scripted", body["runtime"])
	assert.Len(t, body["tools"], len(p.Tools()))
	assert.Equal(t, []any{"streaming", "real-time_progress"}, body["features"])
}

func TestHealthAndFrontendInfo(t *testing.T) {
	s := newServer(t, runtime.NewScripted(), nil, func(o *Options) {
		o.BackendPort = 9100
		o.FrontendPort = 9101
	})

	health := decode(t, do(t, s, http.MethodGet, "/health", ""))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["cors_enabled"])
	assert.Equal(t, float64(9100), health["backend_port"])
	assert.Equal(t, float64(9101), health["frontend_port"])
	assert.Equal(t, "2026-03-04T05:06:07.000008", health["timestamp"])

	info := decode(t, do(t, s, http.MethodGet, "/frontend-info", ""))
	assert.Equal(t, map[string]any{
		"backend_url":     "http://localhost:9100",
		"frontend_url":    "http://localhost:9101",
		"cors_enabled":    true,
		"connection_test": "ready",
	}, info)
}

func TestListFiles_EmptyDirectoryIsCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated_files")
	s := newServer(t, runtime.NewScripted(), artifact.NewFileStore(dir))

	rec := do(t, s, http.MethodGet, "/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[],"count":0}`, rec.Body.String())

	_, err := os.Stat(dir)
	assert.NoError(t, err)
}

func TestListFiles_ReportsErrorsInBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	s := newServer(t, runtime.NewScripted(), artifact.NewFileStore(path))

	rec := do(t, s, http.MethodGet, "/files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, []any{}, body["files"])
	assert.Equal(t, float64(0), body["count"])
	assert.NotEmpty(t, body["error"])
}

func TestFiles_ListAndDownload(t *testing.T) {
	dir := t.TempDir()
	content := []byte("ticket,priority\n42,high\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tickets.csv"), content, 0o600))
	s := newServer(t, runtime.NewScripted(), artifact.NewFileStore(dir))

	body := decode(t, do(t, s, http.MethodGet, "/files", ""))
	assert.Equal(t, float64(1), body["count"])
	file := body["files"].([]any)[0].(map[string]any)
	assert.Equal(t, "tickets.csv", file["filename"])
	assert.Equal(t, float64(len(content)), file["size"])
	_, err := time.ParseInLocation(invocation.TimestampFormat, file["modified"].(string), time.Local)
	assert.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/files/tickets.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=tickets.csv`, rec.Header().Get("Content-Disposition"))
}

func TestDownload_EscapedNames(t *testing.T) {
	dir := t.TempDir()
	names := []string{"report (1).txt", "my notes.txt", "a'b.txt"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o600))
	}
	s := newServer(t, runtime.NewScripted(), artifact.NewFileStore(dir))

	testCases := []struct {
		path string
		name string
	}{
		{path: "/files/report%20(1).txt", name: "report (1).txt"},
		{path: "/files/report%20%281%29.txt", name: "report (1).txt"},
		{path: "/files/my%20notes.txt", name: "my notes.txt"},
		{path: "/files/a'b.txt", name: "a'b.txt"},
		{path: "/files/a%27b.txt", name: "a'b.txt"},
	}
	for _, tc := range testCases {
		rec := do(t, s, http.MethodGet, tc.path, "")
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Equal(t, "content of "+tc.name, rec.Body.String(), tc.path)
	}

	rec := do(t, s, http.MethodGet, "/files/..%2F(secret)", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_NotFound(t *testing.T) {
	s := newServer(t, runtime.NewScripted(), artifact.NewFileStore(t.TempDir()))

	for _, path := range []string{"/files/missing.txt", "/files/..%2Fsecret"} {
		rec := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"detail":"File not found"}`, rec.Body.String())
	}
}

func TestQuery_Success(t *testing.T) {
	rt := abRuntime()
	rec := do(t, newServer(t, rt, nil), http.MethodPost, "/query", `{"prompt":"help me","max_turns":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "A\nB", body["response"])
	assert.Equal(t, map[string]any{
		"duration_ms":    float64(900),
		"total_cost_usd": 0.5,
		"num_turns":      float64(2),
		"session_id":     "sess-9",
	}, body["usage"])
	assert.Equal(t, map[string]any{"name": profile.Default().Name(), "role": profile.Default().Role()}, body["agent_info"])

	calls := rt.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "help me", calls[0].Prompt)
	assert.Equal(t, 4, calls[0].Options.MaxTurns)
}

func TestQuery_NoMessages(t *testing.T) {
	rec := do(t, newServer(t, runtime.NewScripted(), nil), http.MethodPost, "/query", `{"prompt":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, invocation.FallbackResponse, body["response"])
	assert.Equal(t, map[string]any{}, body["usage"])
}

func TestQuery_RuntimeFailure(t *testing.T) {
	rt := runtime.NewScripted(testutil.AssistantText("partial")).WithError(errors.New("cli crashed"))

	rec := do(t, newServer(t, rt, nil), http.MethodPost, "/query", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Agent execution failed: cli crashed"}`, rec.Body.String())
}

func TestQuery_InvalidBodies(t *testing.T) {
	s := newServer(t, runtime.NewScripted(), nil)
	for _, body := range []string{``, `{`, `{"prompt": 1}`, `{"prompt":"x","max_turns":0}`, `{"prompt":"x","max_turns":"many"}`, `{} {}`} {
		rec := do(t, s, http.MethodPost, "/query", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.NotEmpty(t, decode(t, rec)["detail"], body)
	}
}

func TestStream_Events(t *testing.T) {
	rec := do(t, newServer(t, abRuntime(), nil), http.MethodPost, "/stream", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: {"))
	assert.True(t, strings.HasSuffix(rec.Body.String(), "}\n\n"))

	events := sseEvents(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, "initializing", events[0].Data["status"])
	assert.Equal(t, "processing", events[1].Data["status"])
	assert.Equal(t, "A", events[2].Data["content"])
	assert.Equal(t, true, events[2].Data["partial"])
	assert.Equal(t, "B", events[3].Data["content"])
	assert.Equal(t, invocation.EventComplete, events[4].Type)
	assert.Equal(t, "A\nB", events[4].Data["response"])
	assert.Equal(t, "2026-03-04T05:06:07.000008", events[4].Timestamp)
}

func TestStream_RuntimeFailure(t *testing.T) {
	rt := runtime.NewScripted(testutil.AssistantText("A")).WithError(errors.New("boom"))

	rec := do(t, newServer(t, rt, nil), http.MethodPost, "/stream", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := sseEvents(t, rec.Body.String())
	var types []invocation.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []invocation.EventType{
		invocation.EventProgress,
		invocation.EventProgress,
		invocation.EventResponse,
		invocation.EventError,
	}, types)
	assert.Equal(t, "[ERROR] Error: boom", events[3].Data["message"])
}

func TestStream_InvalidBody(t *testing.T) {
	rec := do(t, newServer(t, runtime.NewScripted(), nil), http.MethodPost, "/stream", `{"max_turns":-3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newServer(t, runtime.NewScripted(), nil)

	rec := do(t, s, http.MethodGet, "/health", "", "Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = do(t, s, http.MethodGet, "/health", "", "Origin", "http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	prod := newServer(t, runtime.NewScripted(), nil, func(o *Options) { o.Production = true })
	rec = do(t, prod, http.MethodGet, "/health", "", "Origin", "http://localhost:5173")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	rec = do(t, prod, http.MethodGet, "/health", "", "Origin", "http://127.0.0.1:8004")
	assert.Equal(t, "http://127.0.0.1:8004", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	s := newServer(t, runtime.NewScripted(), nil)

	rec := do(t, s, http.MethodOptions, "/query", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", "content-type",
	)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"message":"CORS preflight OK"}`, rec.Body.String())

	rec = do(t, s, http.MethodOptions, "/anything/at/all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"CORS preflight OK"}`, rec.Body.String())
}

func TestOriginAllowed(t *testing.T) {
	testCases := []struct {
		origin     string
		production bool
		want       bool
	}{
		{origin: "http://localhost:3000", want: true},
		{origin: "http://127.0.0.1:8080", production: true, want: true},
		{origin: "http://localhost:8006", production: true, want: true},
		{origin: "http://localhost:8007", production: true, want: false},
		{origin: "http://localhost:8007", want: true},
		{origin: "http://127.0.0.1:8999", want: true},
		{origin: "http://localhost:9000", want: false},
		{origin: "http://localhost:2999", want: false},
		{origin: "http://localhost:03000", want: false},
		{origin: "https://localhost:3000", want: false},
		{origin: "http://example.com:3000", want: false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, OriginAllowed(tc.origin, 8003, tc.production), "%s production=%v", tc.origin, tc.production)
	}
}
