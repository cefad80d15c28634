// Package server exposes a board subscription to local tools over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	v1 "github.com/dilenshah23/collaboration-board/internal/api/v1"
	"github.com/dilenshah23/collaboration-board/internal/api/ws"
	"github.com/dilenshah23/collaboration-board/internal/config"
	"github.com/dilenshah23/collaboration-board/internal/server/middleware"
)

const (
	apiRate  = 20
	apiBurst = 40
)

type Options struct {
	Board   v1.Board
	BoardID int64
	// PubSub backs the /ws routes. Nil disables them.
	PubSub ws.Subscriber
	Logger *zerolog.Logger
}

// Server is the HTTP server that wires the local API and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a Server with all routes wired. ctx bounds background work
// started by middleware.
func New(ctx context.Context, cfg config.ServerConfig, opts Options) *Server {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "server").Logger()

	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	s := &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, apiRate, apiBurst, logger))

		apiConfig := huma.DefaultConfig("Board Sync API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, opts.Board)
	})

	if opts.PubSub != nil {
		hub := ws.NewHub(opts.PubSub, opts.BoardID, ws.HubOptions{
			OriginPatterns: originPatterns(cfg.CORSOrigins),
			Logger:         &logger,
		})
		router.Route("/ws", func(r chi.Router) {
			registerWSRoutes(r, hub)
		})
		logger.Info().Msg("websocket mirror routes enabled")
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
