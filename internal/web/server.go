// Package web provides the JSON HTTP API for importing trip files and
// querying the loaded trips.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/web/middleware"
)

// reportTimeout bounds report queries. Imports have their own timeout.
const reportTimeout = 60 * time.Second

// Pinger reports whether the destination database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the trip API.
type Server struct {
	service *core.Service
	reports core.Reporter
	db      Pinger
	cfg     *config.Config
	limiter *rateLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. reports and db are usually the same store.
func NewServer(cfg *config.Config, service *core.Service, reports core.Reporter, db Pinger) *Server {
	s := &Server{
		service: service,
		reports: reports,
		db:      db,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	// cors treats an empty origin list as "*", so only mount it when configured.
	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Security.RateLimit > 0 {
		s.limiter = newRateLimiter(s.cfg.Security.RateLimit, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		// Imports run under the service's own timeout.
		r.Post("/imports", s.handleImport)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(reportTimeout))

			r.Get("/reports/top-distance", s.handleTopDistance)
			r.Get("/reports/top-duration", s.handleTopDuration)
			r.Get("/reports/top-tip-zone", s.handleTopTipZone)
			r.Get("/reports/avg-tip", s.handleAvgTip)
			r.Get("/trips", s.handleTripsByZone)
			r.Get("/imports", s.handleImportHistory)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests,
// then for any import still holding the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if l := s.service.Limiter(); l != nil {
		return l.WaitForDrain(ctx)
	}
	return nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds headers appropriate for a JSON-only API.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
