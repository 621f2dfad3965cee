// Package api provides the HTTP API server and handlers for the Daybook application.
package api

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/daybookapp/daybook-server/internal/http/response"
	"github.com/daybookapp/daybook-server/internal/media/images"
	"github.com/daybookapp/daybook-server/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	uploads         *images.Storage
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	publicURL       string
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// publicURL, when set, is prepended to photo links in responses;
// when empty, links stay relative to the server root.
func NewServer(name, publicURL string, store store.Store, services *Services, uploads *images.Storage, logger *slog.Logger) *Server {
	s := &Server{
		store:           store,
		services:        services,
		uploads:         uploads,
		router:          chi.NewRouter(),
		logger:          logger,
		publicURL:       publicURL,
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(name, "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerDiaryRoutes()
	s.registerUploadRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
	s.router.Use(s.limitAuthRoutes())
}

// limitAuthRoutes rate limits the credential endpoints by client IP.
// Other routes pass through untouched.
func (s *Server) limitAuthRoutes() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := RateLimitMiddleware(s.authRateLimiter, s.logger)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// registerUploadRoutes serves stored photo bytes. Plain chi, not huma:
// these are raw files, not JSON.
func (s *Server) registerUploadRoutes() {
	s.router.Get("/uploads/{name}", s.handleServeUpload)
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || !s.uploads.Exists(name) {
		response.NotFound(w, "photo not found", s.logger)
		return
	}

	// ServeFile sets Content-Type from the extension and handles
	// range and conditional requests.
	http.ServeFile(w, r, s.uploads.Path(name))
}
