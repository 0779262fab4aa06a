// Package server provides the HTTP API for Tonearm.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/catalog"
	"github.com/tonearm/tonearm/internal/config"
	"github.com/tonearm/tonearm/internal/enrich"
	"github.com/tonearm/tonearm/internal/ingest"
	"github.com/tonearm/tonearm/internal/recommend"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
)

// Server is the HTTP server for the Tonearm API.
type Server struct {
	engine   *recommend.Engine
	ingestor *ingest.Ingestor
	enricher *enrich.Enricher
	storage  storage.Storage
	catalog  *catalog.Index
	index    *vector.Index
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. catalogIndex and
// enricher may be nil when their surfaces are not configured.
func NewServer(
	engine *recommend.Engine,
	ingestor *ingest.Ingestor,
	enricher *enrich.Enricher,
	store storage.Storage,
	catalogIndex *catalog.Index,
	index *vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		enricher: enricher,
		storage:  store,
		catalog:  catalogIndex,
		index:    index,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/recommendations", s.handleRecommend)
	r.Get("/api/v1/recommendations/enriched", s.handleRecommendEnriched)
	r.Post("/api/v1/users/{id}/interactions", s.handleUploadInteractions)
	r.Get("/api/v1/users/{id}/profile", s.handleGetProfile)
	r.Get("/api/v1/tracks/{id}", s.handleGetTrack)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
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
