// Package server provides the HTTP API for Searchive.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/chat"
	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/ingest"
	"github.com/searchive/searchive/internal/storage"
)

// Server is the HTTP server for the Searchive API.
type Server struct {
	pipeline *ingest.Pipeline
	idx      *index.BleveIndex
	store    storage.Storage
	files    *storage.FileStore
	chat     *chat.Service
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	idx *index.BleveIndex,
	store storage.Storage,
	files *storage.FileStore,
	chatSvc *chat.Service,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		idx:      idx,
		store:    store,
		files:    files,
		chat:     chatSvc,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Post("/documents", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/search", s.handleSearch)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/tags", s.handleDocumentTags)
		r.Get("/documents/{id}/file", s.handleDownload)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Post("/conversations", s.handleCreateConversation)
		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}/messages", s.handleListMessages)
		r.Post("/conversations/{id}/messages", s.handleSendMessage)
		r.Delete("/conversations/{id}", s.handleDeleteConversation)

		r.Get("/status", s.handleStatus)
	})
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
