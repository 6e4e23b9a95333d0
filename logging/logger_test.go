package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{" error ", LogLevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, `unsupported value "verbose"`)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	_, logger := NewLogger(&buf, LogLevelInfo, FormatJSON)

	logger.Debug("hidden")
	logger.Info("http.request", "status", 200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "http.request", rec["msg"])
	assert.Equal(t, float64(200), rec["status"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	_, logger := NewLogger(&buf, LogLevelDebug, FormatText)

	logger.Error("tool.call.error", "error", errors.New("boom"))

	assert.Contains(t, buf.String(), "tool.call.error")
	assert.Contains(t, buf.String(), "boom")
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))

	var buf bytes.Buffer
	_, l := NewLogger(&buf, LogLevelInfo, FormatJSON)
	assert.Same(t, l, OrNoOp(l))
}
