package server

import (
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/store"
	"github.com/me/imagebuilder/internal/ui"
)

// Queue is the part of the render builder the API submits jobs to.
type Queue interface {
	EnqueueID(id string, factory builder.SceneFactory, callback builder.Callback) string
	AttachBuilder(step builder.Step) error
	Pipeline() builder.Pipeline
	Len() int
}

// Deliverer receives finished images for a job.
type Deliverer interface {
	Deliver(jobID string, img image.Image)
}

// Server is the imagebuilder REST API server.
type Server struct {
	router      chi.Router
	logger      *slog.Logger
	config      config.ServerConfig
	startTime   time.Time
	store       store.Store
	queue       Queue
	deliverer   Deliverer
	sseInterval time.Duration
	ui          *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithQueue sets the render queue jobs are submitted to. Without one,
// POST /jobs answers 503.
func WithQueue(q Queue) Option {
	return func(s *Server) { s.queue = q }
}

// WithDeliverer sets where finished images go, usually a store.Recorder.
func WithDeliverer(d Deliverer) Option {
	return func(s *Server) { s.deliverer = d }
}

// WithSSEInterval sets how often job streams poll the store.
func WithSSEInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sseInterval = d
		}
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	logger = logging.OrNop(logger)
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "server"),
		config:      cfg,
		startTime:   time.Now(),
		store:       st,
		sseInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ui = ui.New(st, logger)
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleCreateJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetJob)
				r.Get("/image", s.handleGetJobImage)
			})
		})

		r.Route("/sse", func(r chi.Router) {
			r.Get("/jobs/{id}", s.handleSSEJob)
		})
	})

	// Web UI
	s.ui.RegisterRoutes(r)
}
