// Package server provides the HTTP API for agrichat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/agrilab/agrichat/internal/config"
	"github.com/agrilab/agrichat/internal/rag"
)

// Server is the HTTP server for the agrichat API.
type Server struct {
	service *rag.Service
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(service *rag.Service, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		service: service,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/upload", s.handleUpload)
	r.Post("/upload/{threadID}", s.handleUpload)
	r.Post("/chat/{threadID}", s.handleChat)
	r.Get("/chat/{threadID}/history", s.handleHistory)
	r.Post("/new_thread", s.handleNewThread)
	r.Get("/threads", s.handleThreads)
	r.Delete("/thread/{threadID}", s.handleDeleteThread)
	r.Get("/documents", s.handleDocuments)
	r.Get("/documents/{threadID}", s.handleThreadDocuments)
	r.Post("/documents/{docID}/associate/{threadID}", s.handleAssociate)
	r.Get("/search/documents", s.handleSearchDocuments)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
