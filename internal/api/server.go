package api

import (
	"context"
	"fmt"
	"net/http"

	"asset-swap-go/internal/swap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server exposes the settlement engine over HTTP. The upstream auth
// collaborator verifies the caller and installs the X-User-ID header; the
// server trusts it and performs no credential checks itself.
type Server struct {
	httpServer *http.Server
	engine     *swap.Engine
	db         *gorm.DB
	logger     *zap.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(port int, engine *swap.Engine, db *gorm.DB, logger *zap.Logger) *Server {
	s := &Server{
		engine: engine,
		db:     db,
		logger: logger.Named("api-server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.healthHandler)
	r.Route("/swap", func(r chi.Router) {
		r.Post("/execute", s.executeHandler)
		r.Get("/history", s.historyHandler)
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Handler returns the mounted router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.httpServer.Shutdown(ctx)
}
