package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"nodecms/app/internal/compiler"
	"nodecms/app/internal/content"
)

// PassRunner runs compilation passes.
type PassRunner interface {
	Run(ctx context.Context, progress logrus.FieldLogger) (compiler.Summary, error)
	Trigger()
}

// PageIndex resolves request paths to compiled pages.
type PageIndex interface {
	GetByPath(ctx context.Context, path string) (*content.CompiledPage, error)
}

// Options configures the HTTP server wiring.
type Options struct {
	Runner      PassRunner
	Index       PageIndex
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	Webroot     string
	Langs       []string
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server serves compiled pages and exposes the compile API via Huma.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	runner      PassRunner
	index       PageIndex
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	webroot     string
	langs       []string
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, eris.New("runner is required")
	}
	if opts.Index == nil {
		return nil, eris.New("page index is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}
	if opts.Webroot == "" {
		return nil, eris.New("webroot is required")
	}
	if len(opts.Langs) == 0 {
		return nil, eris.New("at least one language is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("NodeCMS", "1.0.0")
	// Every other path belongs to compiled pages.
	config.OpenAPIPath = "/api/openapi"
	config.DocsPath = "/api/docs"
	config.SchemasPath = "/api/schemas"

	api := humago.New(mux, config)

	srv := &Server{
		api:         api,
		mux:         mux,
		runner:      opts.Runner,
		index:       opts.Index,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		db:          opts.Database,
		webroot:     opts.Webroot,
		langs:       append([]string(nil), opts.Langs...),
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	s.rateLimiter.Close()
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerHealthRoute()
	s.registerCompileRoute()
	s.registerContentRoute()
	s.registerPageRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
