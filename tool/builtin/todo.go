package builtin

import (
	"fmt"
	"sync"

	"github.com/hupe1980/supportagent/tool"
)

// Todo statuses.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// Todo is one item of the agent's task list.
type Todo struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm"`
}

// TodoStore keeps the latest task list per session.
type TodoStore struct {
	mu    sync.RWMutex
	lists map[string][]Todo
}

// NewTodoStore returns an empty store.
func NewTodoStore() *TodoStore {
	return &TodoStore{lists: make(map[string][]Todo)}
}

// Set replaces the list for a session.
func (s *TodoStore) Set(sessionID string, todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[sessionID] = append([]Todo(nil), todos...)
}

// Get returns a copy of the list for a session.
func (s *TodoStore) Get(sessionID string) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Todo(nil), s.lists[sessionID]...)
}

var todoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"todos": map[string]any{
			"type":        "array",
			"description": "The updated todo list",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content":    map[string]any{"type": "string", "minLength": 1},
					"status":     map[string]any{"type": "string", "enum": []any{TodoPending, TodoInProgress, TodoCompleted}},
					"activeForm": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []any{"content", "status", "activeForm"},
			},
		},
	},
	"required": []any{"todos"},
}

// NewTodoWrite returns the TodoWrite tool which replaces the session's task list.
func NewTodoWrite(store *TodoStore) *tool.FunctionTool {
	return tool.NewFunctionTool(
		ToolTodoWrite,
		"Create and manage a structured task list for the current session. Send the complete list on every call.",
		todoSchema,
		func(tc *tool.Context, args map[string]any) (any, error) {
			raw, _ := args["todos"].([]any)
			todos := make([]Todo, 0, len(raw))
			counts := map[string]int{}
			for _, item := range raw {
				m, _ := item.(map[string]any)
				t := Todo{}
				t.Content, _ = m["content"].(string)
				t.Status, _ = m["status"].(string)
				t.ActiveForm, _ = m["activeForm"].(string)
				todos = append(todos, t)
				counts[t.Status]++
			}
			if counts[TodoInProgress] > 1 {
				return nil, fmt.Errorf("%w: only one todo may be in_progress", ErrArgumentInvalid)
			}

			store.Set(tc.SessionID(), todos)

			return fmt.Sprintf("Todos have been modified successfully: %d pending, %d in progress, %d completed",
				counts[TodoPending], counts[TodoInProgress], counts[TodoCompleted]), nil
		},
	).AsReadOnly()
}
