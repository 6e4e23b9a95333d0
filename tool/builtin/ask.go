package builtin

import (
	"context"

	"github.com/hupe1980/supportagent/tool"
)

// Question is a clarifying question the agent wants answered.
type Question struct {
	Question string   `json:"question"`
	Header   string   `json:"header,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// NonInteractiveAnswerer is the default Answerer: the HTTP service has no
// attached user, so the model is told to proceed on stated assumptions.
func NonInteractiveAnswerer(context.Context, []Question) (string, error) {
	return "No interactive user is attached to this session. Proceed with the most reasonable assumption, state it explicitly in your answer and list any open questions for a human agent.", nil
}

var askSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"maxItems": 4,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{"type": "string", "minLength": 1},
					"header":   map[string]any{"type": "string"},
					"options": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []any{"question"},
			},
		},
	},
	"required": []any{"questions"},
}

// NewAskUserQuestion returns the AskUserQuestion tool.
func NewAskUserQuestion(answer Answerer) *tool.FunctionTool {
	return tool.NewFunctionTool(
		ToolAskUserQuestion,
		"Ask the user clarifying questions when the request is ambiguous.",
		askSchema,
		func(tc *tool.Context, args map[string]any) (any, error) {
			raw, _ := args["questions"].([]any)
			questions := make([]Question, 0, len(raw))
			for _, item := range raw {
				m, _ := item.(map[string]any)
				q := Question{}
				q.Question, _ = m["question"].(string)
				q.Header, _ = m["header"].(string)
				q.Options = stringSlice(m, "options")
				questions = append(questions, q)
			}
			tc.Logger().Info("tool.ask_user.questions", "count", len(questions))
			return answer(tc.Context(), questions)
		},
	).AsReadOnly()
}
