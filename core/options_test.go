package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissionMode(t *testing.T) {
	for _, s := range []string{"default", "acceptEdits", "plan", "bypassPermissions"} {
		m, err := ParsePermissionMode(s)
		require.NoError(t, err)
		assert.Equal(t, PermissionMode(s), m)
	}

	m, err := ParsePermissionMode("")
	require.NoError(t, err)
	assert.Equal(t, PermissionDefault, m)

	_, err = ParsePermissionMode("yolo")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestOptionsValidate(t *testing.T) {
	valid := Options{AllowedTools: []string{"Read"}, PermissionMode: PermissionDefault, MaxTurns: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		opts Options
	}{
		{"zero turns", Options{MaxTurns: 0}},
		{"negative turns", Options{MaxTurns: -3}},
		{"bad mode", Options{MaxTurns: 1, PermissionMode: "nope"}},
		{"empty tool", Options{MaxTurns: 1, AllowedTools: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.opts.Validate(), ErrInvalidOptions)
		})
	}
}

func TestOptionsAllows(t *testing.T) {
	o := Options{AllowedTools: []string{"Read", "Bash"}}
	assert.True(t, o.Allows("Bash"))
	assert.False(t, o.Allows("Write"))
}

func TestSealedVariants(t *testing.T) {
	msgs := []Message{AssistantMessage{}, UserMessage{}, SystemMessage{}, ResultMessage{}}
	blocks := []Block{TextBlock{}, ThinkingBlock{}, ToolUseBlock{}, ToolResultBlock{}}
	assert.Len(t, msgs, 4)
	assert.Len(t, blocks, 4)
}
