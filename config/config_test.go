package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportagent/logging"
)

func env(values map[string]string) func(o *LoadOptions) {
	return func(o *LoadOptions) {
		o.EnvFiles = nil
		o.LookupEnv = func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:8003", cfg.Addr())
	assert.Equal(t, 8004, cfg.FrontendPort)
	assert.Equal(t, "./generated_files", cfg.FilesDir)
	assert.Equal(t, RuntimeClaudeCLI, cfg.Runtime)
	assert.Equal(t, "claude", cfg.ClaudeCLIPath)
	assert.Equal(t, 2*time.Minute, cfg.BashTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, logging.LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, logging.FormatText, cfg.LogFormat)
	assert.Equal(t, "http://localhost:8003", cfg.BackendURL())
	assert.Equal(t, "http://localhost:8004", cfg.FrontendURL())
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.ModelName())
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(nil, env(map[string]string{
		"ENVIRONMENT":       "Production",
		"PORT":              "9000",
		"FRONTEND_PORT":     "9001",
		"AGENT_RUNTIME":     "Anthropic",
		"ANTHROPIC_API_KEY": "sk-test",
		"ANTHROPIC_MODEL":   "claude-opus-4",
		"BASH_TIMEOUT":      "30s",
		"LOG_LEVEL":         "debug",
		"LOG_FORMAT":        "json",
		"FILES_DIR":         "/tmp/out",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 9001, cfg.FrontendPort)
	assert.Equal(t, RuntimeAnthropic, cfg.Runtime)
	assert.Equal(t, "claude-opus-4", cfg.ModelName())
	assert.Equal(t, 30*time.Second, cfg.BashTimeout)
	assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, logging.FormatJSON, cfg.LogFormat)
	assert.Equal(t, "/tmp/out", cfg.FilesDir)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	cfg, err := Load([]string{
		"--port", "7000",
		"--runtime", "openai",
		"--model", "gpt-4.1",
		"--log-level", "warn",
		"--workdir", "/srv/agent",
	}, env(map[string]string{
		"PORT":           "9000",
		"OPENAI_API_KEY": "sk-test",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, RuntimeOpenAI, cfg.Runtime)
	assert.Equal(t, "gpt-4.1", cfg.ModelName())
	assert.Equal(t, logging.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, "/srv/agent", cfg.Workdir)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=8100\nHOST=127.0.0.1\n"), 0o600))

	cfg, err := Load(nil, env(map[string]string{"PORT": "8200"}), func(o *LoadOptions) {
		o.EnvFiles = []string{path, filepath.Join(t.TempDir(), "missing.env")}
	})
	require.NoError(t, err)

	assert.Equal(t, 8200, cfg.Port, "process environment wins over .env")
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "port out of range", args: []string{"--port", "70000"}},
		{name: "bad duration", env: map[string]string{"BASH_TIMEOUT": "soon"}},
		{name: "non-positive duration", env: map[string]string{"SHUTDOWN_TIMEOUT": "0s"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "trace"}},
		{name: "bad log format flag", args: []string{"--log-format", "pretty"}},
		{name: "unknown runtime", args: []string{"--runtime", "gemini"}},
		{name: "anthropic without key", args: []string{"--runtime", "anthropic"}},
		{name: "openai without key", env: map[string]string{"AGENT_RUNTIME": "openai"}},
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "positional argument", args: []string{"serve"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.args, env(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Help(t *testing.T) {
	_, err := Load([]string{"--help"}, env(nil))
	assert.ErrorIs(t, err, pflag.ErrHelp)
}
