// Package supportagent wires the customer support agent service: it selects
// an agent runtime from configuration, binds it to the agent profile and
// serves the HTTP API. Most binaries only need:
//  1. config.Load to read defaults, .env, environment and flags
//  2. New to assemble the service
//  3. Start and Shutdown to run it
package supportagent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/supportagent/artifact"
	"github.com/hupe1980/supportagent/config"
	"github.com/hupe1980/supportagent/core"
	"github.com/hupe1980/supportagent/invocation"
	"github.com/hupe1980/supportagent/logging"
	"github.com/hupe1980/supportagent/model"
	"github.com/hupe1980/supportagent/model/anthropic"
	"github.com/hupe1980/supportagent/model/openai"
	"github.com/hupe1980/supportagent/profile"
	"github.com/hupe1980/supportagent/runtime/claudecli"
	"github.com/hupe1980/supportagent/runtime/local"
	"github.com/hupe1980/supportagent/server"
	"github.com/hupe1980/supportagent/telemetry"
	"github.com/hupe1980/supportagent/tool/builtin"
)

const readHeaderTimeout = 10 * time.Second

// Options configures the App.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Telemetry defaults to the global OpenTelemetry providers.
	Telemetry telemetry.Telemetry
	// Runtime replaces the runtime selected by the configuration.
	Runtime core.Runtime
	// Profile replaces the profile selected by the configuration.
	Profile *profile.Profile
}

// App owns the runtime wiring and the HTTP server lifecycle.
type App struct {
	cfg     config.Config
	logger  logging.Logger
	runtime core.Runtime
	profile *profile.Profile
	server  *http.Server
	ready   atomic.Bool
}

// New assembles the service described by cfg.
func New(cfg config.Config, optFns ...func(o *Options)) (*App, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new app config: %w", err)
	}

	p := opts.Profile
	if p == nil {
		var err error
		if p, err = LoadProfile(cfg.ProfilePath); err != nil {
			return nil, fmt.Errorf("new app profile: %w", err)
		}
	}

	rt := opts.Runtime
	if rt == nil {
		var err error
		if rt, err = NewRuntime(cfg, logger); err != nil {
			return nil, fmt.Errorf("new app runtime: %w", err)
		}
	}

	tel := opts.Telemetry
	if tel.Tracer == nil && tel.Metrics == nil {
		tel = telemetry.New()
	}

	adapter := invocation.NewAdapter(rt, p, func(o *invocation.Options) {
		o.Logger = logger
		o.Telemetry = tel
		o.Cwd = cfg.Workdir
	})

	srv := server.New(adapter, artifact.NewFileStore(cfg.FilesDir), func(o *server.Options) {
		o.Logger = logger
		o.Production = cfg.IsProduction()
		o.BackendPort = cfg.Port
		o.FrontendPort = cfg.FrontendPort
	})

	a := &App{
		cfg:     cfg,
		logger:  logger,
		runtime: rt,
		profile: p,
	}
	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// LoadProfile returns the profile at path, or the embedded default profile
// when path is empty.
func LoadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return profile.Default(), nil
	}
	return profile.Load(path)
}

// NewRuntime builds the agent runtime selected by cfg.Runtime.
func NewRuntime(cfg config.Config, logger logging.Logger) (core.Runtime, error) {
	switch cfg.Runtime {
	case config.RuntimeClaudeCLI:
		return claudecli.New(func(o *claudecli.Options) {
			o.Path = cfg.ClaudeCLIPath
			o.Logger = logger
		}), nil
	case config.RuntimeAnthropic:
		return newLocalRuntime(cfg, logger, anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Model = anthropicsdk.Model(cfg.AnthropicModel)
		}))
	case config.RuntimeOpenAI:
		return newLocalRuntime(cfg, logger, openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			o.Model = cfg.OpenAIModel
		}))
	default:
		return nil, fmt.Errorf("unsupported runtime %q", cfg.Runtime)
	}
}

func newLocalRuntime(cfg config.Config, logger logging.Logger, m model.Model) (core.Runtime, error) {
	registry, err := builtin.New(func(o *builtin.Options) {
		o.Workdir = cfg.Workdir
		o.BashTimeout = cfg.BashTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("builtin tools: %w", err)
	}

	return local.New(m, registry, func(o *local.Options) {
		o.Logger = logger
	}), nil
}

// Runtime returns the agent runtime in use.
func (a *App) Runtime() core.Runtime { return a.runtime }

// Profile returns the agent profile in use.
func (a *App) Profile() *profile.Profile { return a.profile }

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Ready reports whether the server is accepting connections.
func (a *App) Ready() bool { return a.ready.Load() }

// Start listens on the configured address and serves until Shutdown.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (a *App) Serve(ln net.Listener) error {
	a.ready.Store(true)
	a.logger.Info("server.started",
		"addr", ln.Addr().String(),
		"agent", a.profile.Name(),
		"runtime", a.runtime.Name(),
		"production", a.cfg.IsProduction(),
	)

	err := a.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	a.ready.Store(false)
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires, then closes the remaining connections.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}
	a.ready.Store(false)

	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("server.shutdown.timeout", "error", err)
		if closeErr := a.server.Close(); closeErr != nil {
			return fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		}
		return nil
	}
	return err
}
