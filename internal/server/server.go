package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/config"
	"github.com/criteo/code-id-registry/internal/registry"
	"github.com/criteo/code-id-registry/internal/server/handlers"
	"github.com/criteo/code-id-registry/internal/server/middleware"
	"github.com/criteo/code-id-registry/internal/storage"
)

// APIPrefix is the base path of every route
const APIPrefix = "/api/v1"

// Server represents the HTTP server
type Server struct {
	config        *config.Config
	logger        *slog.Logger
	store         storage.Store
	service       *registry.Service
	authenticator auth.Authenticator
	metrics       *handlers.MetricsHandler
	httpServer    *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger, store storage.Store, service *registry.Service, authenticator auth.Authenticator) *Server {
	return &Server{
		config:        cfg,
		logger:        logger,
		store:         store,
		service:       service,
		authenticator: authenticator,
		metrics:       handlers.NewMetricsHandler(logger),
	}
}

// Start starts the HTTP server and blocks until a shutdown signal or a
// listener error
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server",
		"host", s.config.Server.Host,
		"port", s.config.Server.Port,
		"auth_type", s.config.Auth.Type)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		s.logger.Info("Shutdown signal received", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Initiating graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown failed", "error", err)
			return err
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Storage close failed", "error", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// Handler returns the HTTP handler with middleware and routes
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	registrations := handlers.NewRegistrationHandler(s.service, s.metrics, s.logger)
	queries := handlers.NewQueryHandler(s.service, s.metrics, s.logger)
	admin := handlers.NewAdminHandler(s.service, s.metrics, s.logger)
	health := handlers.NewHealthHandler(s.service, s.logger)
	whoami := handlers.NewWhoamiHandler(s.service, s.logger)

	requireAuth := middleware.RequireAuth(s.authenticator, s.metrics.IncrementAuthFailures)

	// Global middleware (applied to all routes)
	router.Use(middleware.Logging(s.logger, s.metrics.ObserveStatus))
	router.Use(middleware.NewRateLimiter(s.config.Server.RateLimit, s.metrics.IncrementRateLimitExceeded))
	router.Use(middleware.CORS(
		APIPrefix+"/registrations",
		APIPrefix+"/code-ids",
		APIPrefix+"/admin",
		APIPrefix+"/info",
	))

	router.Route(APIPrefix, func(r chi.Router) {
		// Health and metrics endpoints (no auth required)
		r.Get("/health", health.GetHealth)
		r.Get("/metrics", s.metrics.GetMetrics)

		r.With(requireAuth).Get("/whoami", whoami.GetWhoami)

		r.Get("/info", admin.GetInfo)
		r.Get("/admin", admin.GetAdmin)
		r.With(requireAuth).Put("/admin", admin.UpdateAdmin)

		r.Route("/registrations", func(r chi.Router) {
			r.With(requireAuth).Post("/", registrations.Register)
			r.With(requireAuth).Delete("/", registrations.Unregister)

			r.Route("/{name}/{chain_id}", func(r chi.Router) {
				r.Get("/", queries.ListRegistrations)
				r.Get("/latest", queries.GetLatest)
				r.Get("/{version}", queries.GetVersion)
			})
		})

		r.Get("/code-ids/{chain_id}/{code_id}", queries.GetCodeID)
	})

	return router
}
