// Command supportagent serves the customer support agent over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hupe1980/supportagent"
	"github.com/hupe1980/supportagent/config"
	"github.com/hupe1980/supportagent/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "supportagent: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	_, logger := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	app, err := supportagent.New(cfg, func(o *supportagent.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	logger.Info("supportagent.starting",
		"agent", app.Profile().Name(),
		"runtime", app.Runtime().Name(),
		"backend_url", cfg.BackendURL(),
		"frontend_url", cfg.FrontendURL(),
		"health_url", cfg.BackendURL()+"/health",
		"cors_production", cfg.IsProduction(),
		"files_dir", cfg.FilesDir,
	)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- app.Start()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("supportagent.stopping", "timeout", cfg.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return <-serverErrCh
}
