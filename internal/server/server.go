// Package server provides the HTTP server and routing for the fund service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/di"
	profilehandlers "github.com/aristath/fundsentinel/internal/modules/profile/handlers"
	recommendationhandlers "github.com/aristath/fundsentinel/internal/modules/recommendation/handlers"
	universehandlers "github.com/aristath/fundsentinel/internal/modules/universe/handlers"
	adminhandlers "github.com/aristath/fundsentinel/internal/scheduler/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Container *di.Container
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	container *di.Container
	port      int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		container: cfg.Container,
		port:      cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the handler tree
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Oracle calls are bounded by their own timeout, well below this one
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"http://localhost:3000"}
	if devMode {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", api.UserIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: !devMode,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(log zerolog.Logger) {
	c := s.container

	s.router.Handle("/metrics", c.Metrics.Handler())

	funds := universehandlers.NewHandler(c.FundRepo, c.HistoryRepo, log)
	admin := adminhandlers.NewHandler(c.RefreshJob, c.FundRepo, c.HistoryRepo, log)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		funds.RegisterRoutes(r)
		profilehandlers.NewHandler(c.ProfileService, log).RegisterRoutes(r)
		recommendationhandlers.NewHandler(c.RecommendationService, log).RegisterRoutes(r)

		r.Route("/admin", func(r chi.Router) {
			admin.RegisterRoutes(r)
			funds.RegisterAdminRoutes(r)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, s.log, http.StatusNotFound, api.ErrorBody{Error: api.ErrorPayload{
			Kind:    "not_found",
			Message: "route not found",
		}})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
