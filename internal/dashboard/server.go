// Package dashboard is the JSON API behind the shop admin dashboard.
//
// The dashboard package handles:
//   - admin registration, login and the current-admin lookup
//   - product and category reads (public) and writes (guarded)
//   - optional static file serving for the web UI
//
// Every mutating catalog route sits behind auth.Service.Guard.
package dashboard

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/markb/shopdash/internal/auth"
	"github.com/markb/shopdash/internal/catalog"
	"github.com/markb/shopdash/internal/metrics"
)

// Server holds the dashboard routes and the services behind them.
type Server struct {
	router    *chi.Mux
	auth      *auth.Service
	catalog   *catalog.Service
	metrics   *metrics.Manager
	staticDir string
}

// Config holds the configuration for the dashboard server.
type Config struct {
	Auth    *auth.Service
	Catalog *catalog.Service

	// Metrics is optional.
	Metrics *metrics.Manager

	// StaticDir, when set, is served at / with an index.html fallback for
	// client-side routes.
	StaticDir string
}

// NewServer creates a dashboard server with its routes installed.
//
// Example:
//
//	srv := dashboard.NewServer(dashboard.Config{
//	    Auth:    authService,
//	    Catalog: catalog.NewService(store),
//	})
//	http.ListenAndServe(":5000", srv.Handler())
func NewServer(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		auth:      cfg.Auth,
		catalog:   cfg.Catalog,
		metrics:   cfg.Metrics,
		staticDir: cfg.StaticDir,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the dashboard.
//
// Routes:
//   - POST   /api/auth/register            public
//   - POST   /api/auth/login               public
//   - GET    /api/auth/me                  guarded
//   - GET    /api/products[/{id}]          public
//   - POST   /api/products                 guarded
//   - PUT    /api/products/{id}            guarded
//   - DELETE /api/products/{id}            guarded
//   - GET    /api/categories[/{id}]        public
//   - POST   /api/categories               guarded
//   - PUT    /api/categories/{id}          guarded
//   - DELETE /api/categories/{id}          guarded
//   - GET    /*                            static files, if configured
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{id}", s.handleGetCategory)

		// Protected routes (require a valid bearer token)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Guard)
			r.Get("/auth/me", s.handleMe)

			r.Post("/products", s.handleCreateProduct)
			r.Put("/products/{id}", s.handleUpdateProduct)
			r.Delete("/products/{id}", s.handleDeleteProduct)

			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
		})

		r.NotFound(s.handleNotFound)
	})

	if s.staticDir != "" {
		s.router.Get("/*", s.handleStatic)
	}
	s.router.NotFound(s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, msgNotFound)
}

// Handler returns the HTTP handler for the dashboard server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// isAPIPath reports whether p belongs to the JSON API.
func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
