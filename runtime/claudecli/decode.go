package claudecli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/logging"
)

// maxLineSize bounds a single stream-json line; tool results carrying large
// file contents produce long lines.
const maxLineSize = 16 << 20

// envelope is the common shape of every stream-json line.
type envelope struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

type wireMessage struct {
	Message struct {
		Model   string          `json:"model"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	Signature string          `json:"signature"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

type wireResult struct {
	Subtype       string         `json:"subtype"`
	DurationMS    int64          `json:"duration_ms"`
	DurationAPIMS int64          `json:"duration_api_ms"`
	IsError       bool           `json:"is_error"`
	NumTurns      int            `json:"num_turns"`
	SessionID     string         `json:"session_id"`
	TotalCostUSD  *float64       `json:"total_cost_usd"`
	Usage         map[string]any `json:"usage"`
	Result        string         `json:"result"`
}

// Decode reads stream-json lines from r and hands each recognised message to
// emit. Blank, malformed and unknown lines are skipped. Decode stops at the
// first emit error and returns it.
func Decode(r io.Reader, emit func(core.Message) error, logger logging.Logger) error {
	logger = logging.OrNoOp(logger)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		msg, err := ParseLine(line)
		if err != nil {
			logger.Warn("runtime.claudecli.decode.skip", "error", err)
			continue
		}
		if msg == nil {
			continue
		}

		if err := emit(msg); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// ParseLine decodes one stream-json line. It returns a nil message for line
// types that carry nothing for consumers.
func ParseLine(line []byte) (core.Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("parsing stream-json envelope: %w", err)
	}

	switch env.Type {
	case "system":
		var data map[string]any
		if err := json.Unmarshal(line, &data); err != nil {
			return nil, fmt.Errorf("parsing system message: %w", err)
		}
		delete(data, "type")
		delete(data, "subtype")
		return core.SystemMessage{Subtype: env.Subtype, Data: data}, nil

	case "assistant":
		var wm wireMessage
		if err := json.Unmarshal(line, &wm); err != nil {
			return nil, fmt.Errorf("parsing assistant message: %w", err)
		}
		blocks, err := parseContent(wm.Message.Content)
		if err != nil {
			return nil, err
		}
		return core.AssistantMessage{Content: blocks, Model: wm.Message.Model}, nil

	case "user":
		var wm wireMessage
		if err := json.Unmarshal(line, &wm); err != nil {
			return nil, fmt.Errorf("parsing user message: %w", err)
		}
		blocks, err := parseContent(wm.Message.Content)
		if err != nil {
			return nil, err
		}
		return core.UserMessage{Content: blocks}, nil

	case "result":
		var wr wireResult
		if err := json.Unmarshal(line, &wr); err != nil {
			return nil, fmt.Errorf("parsing result message: %w", err)
		}
		return core.ResultMessage{
			Subtype:       wr.Subtype,
			DurationMS:    wr.DurationMS,
			DurationAPIMS: wr.DurationAPIMS,
			IsError:       wr.IsError,
			NumTurns:      wr.NumTurns,
			SessionID:     wr.SessionID,
			TotalCostUSD:  wr.TotalCostUSD,
			Usage:         wr.Usage,
			Result:        wr.Result,
		}, nil

	default:
		return nil, nil
	}
}

// parseContent accepts either a bare string or a list of content blocks.
func parseContent(raw json.RawMessage) ([]core.Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []core.Block{core.TextBlock{Text: text}}, nil
	}

	var wire []wireBlock
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parsing content blocks: %w", err)
	}

	blocks := make([]core.Block, 0, len(wire))
	for _, b := range wire {
		switch b.Type {
		case "text":
			blocks = append(blocks, core.TextBlock{Text: b.Text})
		case "thinking":
			blocks = append(blocks, core.ThinkingBlock{Thinking: b.Thinking, Signature: b.Signature})
		case "tool_use":
			blocks = append(blocks, core.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input})
		case "tool_result":
			blocks = append(blocks, core.ToolResultBlock{
				ToolUseID: b.ToolUseID,
				Content:   toolResultText(b.Content),
				IsError:   b.IsError,
			})
		}
	}

	return blocks, nil
}

// toolResultText flattens tool_result content, which is a string or a list of
// text blocks.
func toolResultText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var parts []wireBlock
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return string(raw)
}
