// Package config loads service configuration from defaults, an optional .env
// file, the process environment and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/hupe1980/supportagent/logging"
)

const (
	defaultEnvironment     = "development"
	defaultHost            = "0.0.0.0"
	defaultPort            = 8003
	defaultFrontendPort    = 8004
	defaultFilesDir        = "./generated_files"
	defaultRuntime         = RuntimeClaudeCLI
	defaultClaudeCLIPath   = "claude"
	defaultAnthropicModel  = "claude-sonnet-4-5"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultBashTimeout     = 2 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

// EnvironmentProduction disables the development CORS origin range.
const EnvironmentProduction = "production"

// RuntimeKind selects the agent runtime implementation.
type RuntimeKind string

const (
	// RuntimeClaudeCLI drives the Claude Code CLI.
	RuntimeClaudeCLI RuntimeKind = "claude-cli"
	// RuntimeAnthropic runs the in-process loop on the Anthropic Messages API.
	RuntimeAnthropic RuntimeKind = "anthropic"
	// RuntimeOpenAI runs the in-process loop on OpenAI Chat Completions.
	RuntimeOpenAI RuntimeKind = "openai"
)

// Config holds everything the service needs at startup.
type Config struct {
	Environment  string
	Host         string
	Port         int
	FrontendPort int
	FilesDir     string
	// ProfilePath overrides the embedded agent profile when set.
	ProfilePath string

	Runtime       RuntimeKind
	ClaudeCLIPath string
	Workdir       string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	BashTimeout     time.Duration
	ShutdownTimeout time.Duration

	LogLevel  logging.LogLevel
	LogFormat logging.Format
}

// LoadOptions configures Load.
type LoadOptions struct {
	// EnvFiles are read with godotenv; missing files are ignored. Values from
	// the process environment take precedence.
	EnvFiles []string
	// LookupEnv reads the process environment; defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Default returns the built-in configuration.
func Default() Config {
	workdir, err := os.Getwd()
	if err != nil || strings.TrimSpace(workdir) == "" {
		workdir = "."
	}

	return Config{
		Environment:     defaultEnvironment,
		Host:            defaultHost,
		Port:            defaultPort,
		FrontendPort:    defaultFrontendPort,
		FilesDir:        defaultFilesDir,
		Runtime:         defaultRuntime,
		ClaudeCLIPath:   defaultClaudeCLIPath,
		Workdir:         workdir,
		AnthropicModel:  defaultAnthropicModel,
		OpenAIModel:     defaultOpenAIModel,
		BashTimeout:     defaultBashTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        logging.LogLevelInfo,
		LogFormat:       logging.FormatText,
	}
}

// Load builds a validated Config from args (without the program name).
// It returns pflag.ErrHelp when help was requested.
func Load(args []string, optFns ...func(o *LoadOptions)) (Config, error) {
	opts := LoadOptions{
		EnvFiles:  []string{".env"},
		LookupEnv: os.LookupEnv,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := opts.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.applyFlags(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	values := map[string]string{}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		read, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for k, v := range read {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = parsed
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			parsed, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			if parsed <= 0 {
				return fmt.Errorf("parse %s: value must be > 0", key)
			}
			*dst = parsed
		}
		return nil
	}

	str("ENVIRONMENT", &c.Environment)
	str("HOST", &c.Host)
	str("FILES_DIR", &c.FilesDir)
	str("AGENT_PROFILE", &c.ProfilePath)
	str("CLAUDE_CLI_PATH", &c.ClaudeCLIPath)
	str("AGENT_WORKDIR", &c.Workdir)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	str("ANTHROPIC_MODEL", &c.AnthropicModel)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("OPENAI_MODEL", &c.OpenAIModel)

	var runtime string
	str("AGENT_RUNTIME", &runtime)
	if runtime != "" {
		c.Runtime = RuntimeKind(strings.ToLower(runtime))
	}

	if err := num("PORT", &c.Port); err != nil {
		return err
	}
	if err := num("FRONTEND_PORT", &c.FrontendPort); err != nil {
		return err
	}
	if err := dur("BASH_TIMEOUT", &c.BashTimeout); err != nil {
		return err
	}
	if err := dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout); err != nil {
		return err
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
		c.LogLevel = level
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		format, err := logging.ParseFormat(v)
		if err != nil {
			return fmt.Errorf("parse LOG_FORMAT: %w", err)
		}
		c.LogFormat = format
	}

	return nil
}

type flagValues struct {
	runtime string
	model   string
	level   string
	format  string
}

// bindFlags registers the command-line flags on flagSet. Current values of c
// become the flag defaults.
func (c *Config) bindFlags(flagSet *pflag.FlagSet) *flagValues {
	v := &flagValues{}
	flagSet.StringVar(&c.Environment, "environment", c.Environment, "deployment environment (production disables the development CORS range)")
	flagSet.StringVar(&c.Host, "host", c.Host, "bind host")
	flagSet.IntVar(&c.Port, "port", c.Port, "backend port")
	flagSet.IntVar(&c.FrontendPort, "frontend-port", c.FrontendPort, "advertised frontend port")
	flagSet.StringVar(&c.FilesDir, "files-dir", c.FilesDir, "directory of generated files")
	flagSet.StringVar(&c.ProfilePath, "profile", c.ProfilePath, "agent profile YAML (default: embedded profile)")
	flagSet.StringVar(&c.ClaudeCLIPath, "claude-cli", c.ClaudeCLIPath, "path to the claude CLI")
	flagSet.StringVar(&c.Workdir, "workdir", c.Workdir, "runtime working directory and tool workspace root")
	flagSet.StringVar(&v.runtime, "runtime", string(c.Runtime), "agent runtime: claude-cli, anthropic or openai")
	flagSet.StringVar(&v.model, "model", "", "model for the in-process runtimes")
	flagSet.StringVar(&v.level, "log-level", strings.ToLower(c.LogLevel.String()), "log level: debug, info, warn or error")
	flagSet.StringVar(&v.format, "log-format", string(c.LogFormat), "log format: text or json")
	return v
}

func (c *Config) applyFlags(args []string) error {
	flagSet := pflag.NewFlagSet("supportagent", pflag.ContinueOnError)
	v := c.bindFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	c.Runtime = RuntimeKind(strings.ToLower(strings.TrimSpace(v.runtime)))

	if m := strings.TrimSpace(v.model); m != "" {
		switch c.Runtime {
		case RuntimeOpenAI:
			c.OpenAIModel = m
		default:
			c.AnthropicModel = m
		}
	}

	level, err := logging.ParseLevel(v.level)
	if err != nil {
		return fmt.Errorf("parse --log-level: %w", err)
	}
	c.LogLevel = level

	format, err := logging.ParseFormat(v.format)
	if err != nil {
		return fmt.Errorf("parse --log-format: %w", err)
	}
	c.LogFormat = format

	return nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if err := validatePort("PORT", c.Port); err != nil {
		return err
	}
	if err := validatePort("FRONTEND_PORT", c.FrontendPort); err != nil {
		return err
	}
	if strings.TrimSpace(c.FilesDir) == "" {
		return errors.New("validate config: FILES_DIR must not be empty")
	}
	if c.BashTimeout <= 0 {
		return errors.New("validate config: BASH_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("validate config: SHUTDOWN_TIMEOUT must be > 0")
	}

	switch c.Runtime {
	case RuntimeClaudeCLI:
		if strings.TrimSpace(c.ClaudeCLIPath) == "" {
			return errors.New("validate config: claude-cli runtime requires CLAUDE_CLI_PATH")
		}
	case RuntimeAnthropic:
		if strings.TrimSpace(c.AnthropicAPIKey) == "" {
			return errors.New("validate config: anthropic runtime requires ANTHROPIC_API_KEY")
		}
	case RuntimeOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return errors.New("validate config: openai runtime requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf(
			"validate config: unsupported AGENT_RUNTIME %q (allowed: %q, %q, %q)",
			c.Runtime,
			RuntimeClaudeCLI,
			RuntimeAnthropic,
			RuntimeOpenAI,
		)
	}

	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("validate config: %s must be within 1-65535, got %d", key, port)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BackendURL is the advertised backend base URL.
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// FrontendURL is the advertised frontend base URL.
func (c Config) FrontendURL() string {
	return fmt.Sprintf("http://localhost:%d", c.FrontendPort)
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// ModelName returns the model of the selected in-process runtime, or "" for
// the CLI runtime.
func (c Config) ModelName() string {
	switch c.Runtime {
	case RuntimeAnthropic:
		return c.AnthropicModel
	case RuntimeOpenAI:
		return c.OpenAIModel
	default:
		return ""
	}
}
