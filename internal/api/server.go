// Package api serves the local observability and control surface: liveness,
// status snapshots, the registered command table, journal history, command
// execution, and a server-sent event stream of bridge activity.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/stagehand/internal/events"
)

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	dispatcher Dispatcher
	commands   CommandLister
	journal    JournalReader
	project    ProjectViewer
	hub        *events.Hub
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

// New creates an API server. journal may be nil when history is not wired;
// the journal endpoints then answer 404.
func New(config Config, dispatcher Dispatcher, commands CommandLister, journal JournalReader, project ProjectViewer, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(16)
	}
	return &Server{
		config:     config,
		dispatcher: dispatcher,
		commands:   commands,
		journal:    journal,
		project:    project,
		hub:        hub,
		logger:     logger.With("component", "api"),
		startedAt:  time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No write timeout: /events streams indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("api server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/events", s.handleEvents)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/commands", s.handleCommands)
		r.Get("/journal/recent", s.handleJournalRecent)
		r.Post("/execute", s.handleExecute)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
