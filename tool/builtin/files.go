package builtin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/supportagent/tool"
)

const (
	defaultReadLimit = 2000
	maxLineChars     = 2000
)

type readArgs struct {
	FilePath string `json:"file_path" description:"Path of the file to read, absolute or relative to the workspace"`
	Offset   int    `json:"offset,omitempty" description:"1-based line number to start reading from"`
	Limit    int    `json:"limit,omitempty" description:"Maximum number of lines to read"`
}

// NewRead returns the Read tool. Output is numbered like cat -n.
func NewRead(ws Workspace, maxSize int64) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolRead,
		"Read a UTF-8 text file within the workspace. Returns numbered lines; use offset and limit for large files.",
		readArgs{},
		func(_ *tool.Context, args map[string]any) (any, error) {
			raw, err := stringArgument(args, "file_path")
			if err != nil {
				return nil, err
			}
			path, err := ws.Resolve(raw)
			if err != nil {
				return nil, err
			}

			info, err := os.Stat(path)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, tool.NewToolError(ToolRead, fmt.Sprintf("file does not exist: %s", raw), tool.CodeNotFound)
				}
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory", raw)
			}
			// Files over maxSize are only read as an explicit line range.
			_, hasOffset := args["offset"]
			_, hasLimit := args["limit"]
			if info.Size() > maxSize && !hasOffset && !hasLimit {
				return nil, fmt.Errorf("file %s is %d bytes, limit is %d; read a range with offset and limit", raw, info.Size(), maxSize)
			}

			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()

			offset := optionalInt(args, "offset", 1)
			if offset < 1 {
				offset = 1
			}
			limit := optionalInt(args, "limit", defaultReadLimit)
			if limit < 1 {
				limit = defaultReadLimit
			}

			return numberLines(f, offset, limit)
		},
	).AsReadOnly()
}

func numberLines(r io.Reader, offset, limit int) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), DefaultMaxReadSize)

	line := 0
	for sc.Scan() {
		line++
		if line < offset {
			continue
		}
		if line >= offset+limit {
			break
		}
		text := sc.Text()
		if len(text) > maxLineChars {
			text = text[:maxLineChars]
		}
		fmt.Fprintf(&b, "%6d\t%s\n", line, text)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if b.Len() == 0 {
		return "<empty>", nil
	}
	return b.String(), nil
}

type writeArgs struct {
	FilePath string `json:"file_path" description:"Path of the file to write, absolute or relative to the workspace"`
	Content  string `json:"content" description:"Full content to write"`
}

// NewWrite returns the Write tool. Parent directories are created.
func NewWrite(ws Workspace) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolWrite,
		"Write UTF-8 text content to a file within the workspace, replacing existing content.",
		writeArgs{},
		func(tc *tool.Context, args map[string]any) (any, error) {
			raw, err := stringArgument(args, "file_path")
			if err != nil {
				return nil, err
			}
			content, _ := args["content"].(string)

			path, err := ws.Resolve(raw)
			if err != nil {
				return nil, err
			}

			verb := "created"
			if _, err := os.Stat(path); err == nil {
				verb = "updated"
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create parent directories: %w", err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}

			tc.Logger().Debug("tool.write.done", "path", path, "bytes", len(content))

			return fmt.Sprintf("File %s successfully at: %s (%d bytes)", verb, path, len(content)), nil
		},
	)
}
