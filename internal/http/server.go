// Package http provides the camarr API server and the static file routes
// that serve HLS segments and recorded media.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/http/middleware"
)

// Server is the HTTP server: a huma API for control operations plus plain
// file servers for stream playlists and finished recordings.
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and API. Handlers register themselves
// through API(); static media routes are wired here.
func NewServer(cfg config.ServerConfig, storage config.StorageConfig, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS)

	// HLS players poll the playlist every segment duration; compression
	// would only add latency to files that are already compressed video.
	router.Handle("/streams/*", http.StripPrefix("/streams/", http.FileServer(http.Dir(storage.StreamPath()))))
	router.Handle("/recordings/*", http.StripPrefix("/recordings/", http.FileServer(http.Dir(storage.RecordingPath()))))
	router.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", http.FileServer(http.Dir(storage.ThumbnailPath()))))

	humaConfig := huma.DefaultConfig("camarr API", version)
	humaConfig.Info.Description = "Multi-camera VMS control API"

	api := humachi.New(router, humaConfig)

	return &Server{
		config: cfg,
		router: router,
		api:    api,
		logger: logger,
	}
}

// API returns the huma API instance for registering operations.
func (s *Server) API() huma.API {
	return s.api
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start blocks serving requests until Shutdown or listen failure.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting HTTP server", slog.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// ListenAndServe starts the server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}
