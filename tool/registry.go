package tool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/supportagent/model"
)

// Registry holds the tools available to the local runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns a registry pre-populated with tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns model tool definitions for the allowed names, in the
// order given. Unknown names are skipped.
func (r *Registry) Definitions(allowed []string) []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]model.ToolDefinition, 0, len(allowed))
	for _, name := range allowed {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs the named tool after checking the allow list and permission
// mode. It never panics: a panicking tool yields an EXECUTION_ERROR.
func (r *Registry) Execute(tc *Context, allowed []string, name string, args map[string]any) (result any, err error) {
	logger := tc.Logger()

	if !contains(allowed, name) {
		return nil, wrapToolError(name, CodePermissionDenied, fmt.Errorf("%w: %s", ErrToolNotAllowed, name))
	}

	impl, ok := r.Get(name)
	if !ok {
		return nil, NewToolError(name, fmt.Sprintf("tool %s not found", name), CodeNotFound)
	}

	if err := Authorize(tc.PermissionMode(), impl); err != nil {
		logger.Warn("tool.call.denied", "tool", name, "mode", tc.PermissionMode(), "error", err.Error())
		return nil, wrapToolError(name, CodePermissionDenied, err)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool.call.panic", "tool", name, "recover", rec, "stack", string(debug.Stack()))
			result, err = nil, NewToolError(name, fmt.Sprintf("panic: %v", rec), CodeExecution)
		}
		logger.Debug("tool.call.executed", "tool", name, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	}()

	result, err = impl.Call(tc, args)
	if err != nil {
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			err = wrapToolError(name, CodeExecution, err)
		}
	}
	return result, err
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
