// Package server exposes the agent over HTTP: JSON endpoints for service
// metadata and generated files, a request/response query endpoint and a
// Server-Sent Events stream.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/supportagent/artifact"
	"github.com/hupe1980/supportagent/invocation"
	"github.com/hupe1980/supportagent/logging"
)

// DefaultMaxBodyBytes bounds request bodies of the query endpoints.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Logger logging.Logger
	// Production restricts CORS to the static origin list.
	Production   bool
	BackendPort  int
	FrontendPort int
	MaxBodyBytes int64
	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	adapter *invocation.Adapter
	files   artifact.Store
	opts    Options
	handler http.Handler
}

// New constructs a Server over the invocation adapter and file store.
func New(adapter *invocation.Adapter, files artifact.Store, optFns ...func(o *Options)) *Server {
	opts := Options{
		BackendPort:  8003,
		FrontendPort: 8004,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Clock:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	s := &Server{adapter: adapter, files: files, opts: opts}
	s.handler = newCORS(opts.BackendPort, opts.Production).Handler(s.routes())

	return s
}

// Handler returns the root HTTP handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.opts.Logger))

	r.Get("/", s.handleRoot)
	r.Get("/info", s.handleInfo)
	r.Get("/frontend-info", s.handleFrontendInfo)
	r.Get("/health", s.handleHealth)
	r.Get("/files", s.handleListFiles)
	r.Get("/files/{filename}", s.handleDownloadFile)
	r.Post("/query", s.handleQuery)
	r.Post("/stream", s.handleStream)
	r.Options("/*", s.handlePreflight)

	return r
}

func (s *Server) timestamp() string {
	return s.opts.Clock().Format(invocation.TimestampFormat)
}
