// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runtimes, tools and HTTP layer use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NewHandler building a tint (text) or JSON slog handler
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	slogger, logger := logging.NewLogger(os.Stderr, logging.LogLevelInfo, logging.FormatText)
//	slog.SetDefault(slogger)
//	adapter := invocation.NewAdapter(rt, prof, func(o *invocation.Options) { o.Logger = logger })
package logging
