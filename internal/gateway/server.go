package gateway

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/recordshelf/scrobble-gateway/internal/config"
	"github.com/recordshelf/scrobble-gateway/internal/session"
)

// Server is the gateway HTTP server.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   zerolog.Logger
}

// NewServer builds the router and wires the handlers.
func NewServer(cfg *config.Config, logger zerolog.Logger, provider Provider, sessions *session.Manager) *Server {
	handlers := NewHandlers(provider, sessions, cfg.LastFM, logger)
	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: handlers,
		logger:   logger,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://localhost:*", "http://127.0.0.1:*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(cfg *config.Config) {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow))

		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handlers.Status)
			r.Post("/login", s.handlers.Login)
			r.Get("/callback", s.handlers.Callback)
			r.Get("/exchange", s.handlers.Exchange)
			r.Post("/logout", s.handlers.Logout)
		})

		r.Route("/scrobble", func(r chi.Router) {
			r.Post("/track", s.handlers.ScrobbleTrack)
			r.Post("/album", s.handlers.ScrobbleAlbum)
			r.Post("/now-playing", s.handlers.NowPlaying)
		})
	})

	// Static assets and SPA fallback are the edge host's concern; the
	// gateway only answers under /api.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and blocks until an interrupt signal or a
// listener error, then shuts down gracefully.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info().Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
