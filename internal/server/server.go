package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/markb/shopdash/internal/admin"
	adminfake "github.com/markb/shopdash/internal/admin/repofake"
	"github.com/markb/shopdash/internal/auth"
	"github.com/markb/shopdash/internal/catalog"
	catalogfake "github.com/markb/shopdash/internal/catalog/repofake"
	"github.com/markb/shopdash/internal/dashboard"
	"github.com/markb/shopdash/internal/log"
	"github.com/markb/shopdash/internal/metrics"
	"github.com/markb/shopdash/internal/pg"
)

type Server struct {
	config     Config
	router     *chi.Mux
	httpServer *http.Server

	pgDatabase *pg.EmbeddedDatabase
	pool       *pgxpool.Pool
	metrics    *metrics.Manager
	registry   *prometheus.Registry
}

type Config struct {
	Host        string
	Port        int
	Production  bool
	JWTSecret   string
	CORSOrigins []string
	StaticDir   string

	// Storage. Memory wins over DatabaseURL, which wins over the embedded
	// database.
	Memory      bool
	DatabaseURL string
	DataDir     string
	PGPort      uint16
	PGUsername  string
	PGPassword  string
	PGDatabase  string
	RuntimePath string // Optional: unique runtime path for test isolation
}

func New(cfg Config) *Server {
	return &Server{
		config: cfg,
		router: chi.NewRouter(),
	}
}

// Setup opens storage, applies the schema and installs the routes. It
// does not listen; Start does.
func (s *Server) Setup(ctx context.Context) error {
	secret, err := auth.ResolveSecret(s.config.JWTSecret, s.config.Production)
	if err != nil {
		return err
	}

	admins, products, err := s.openStorage(ctx)
	if err != nil {
		s.Close()
		return err
	}

	var extra []prometheus.Collector
	if s.pool != nil {
		extra = append(extra, pgxpoolprometheus.NewCollector(s.pool, map[string]string{"db_name": s.databaseName()}))
	}
	s.registry = metrics.SetupPrometheus(extra...)
	s.metrics = metrics.NewManager(metrics.Namespace, metrics.Subsystem, s.registry)

	authService, err := auth.NewService(admins, auth.Config{Secret: secret})
	if err != nil {
		s.Close()
		return err
	}

	dash := dashboard.NewServer(dashboard.Config{
		Auth:      authService,
		Catalog:   catalog.NewService(products),
		Metrics:   s.metrics,
		StaticDir: s.config.StaticDir,
	})

	s.setupRoutes(dash.Handler())
	return nil
}

// Start runs Setup, serves HTTP and blocks until ctx is done or the
// process receives SIGINT or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	log.Info("starting shopdash server...")

	if err := s.Setup(ctx); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("shopdash listening", "addr", addr)
		log.Info("APIs available:")
		log.Info(fmt.Sprintf("  Auth:     http://%s/api/auth/*", addr))
		log.Info(fmt.Sprintf("  Catalog:  http://%s/api/products, /api/categories", addr))
		log.Info(fmt.Sprintf("  Health:   http://%s/health", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return s.waitForShutdown(ctx, errCh)
}

// Handler returns the root handler. Valid after Setup.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(api http.Handler) {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	s.router.Use(PanicRecovery(s.metrics))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(LogRequest())
	s.router.Use(c.Handler)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router.Mount("/", api)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy"}`)
}

// openStorage picks the admin and catalog stores for the configured mode.
func (s *Server) openStorage(ctx context.Context) (admin.Store, catalog.Store, error) {
	if s.config.Memory {
		log.Warn("using in-memory storage; data is lost on exit")
		return adminfake.NewFakeAdminRepo(), catalogfake.NewFakeCatalogRepo(), nil
	}

	connString := s.config.DatabaseURL
	if connString == "" {
		log.Info("starting embedded PostgreSQL...")
		s.pgDatabase = pg.NewEmbeddedDatabase(pg.Config{
			Port:        s.config.PGPort,
			Username:    s.config.PGUsername,
			Password:    s.config.PGPassword,
			Database:    s.config.PGDatabase,
			DataDir:     s.config.DataDir,
			RuntimePath: s.config.RuntimePath,
		})
		if err := s.pgDatabase.Start(ctx); err != nil {
			s.pgDatabase = nil
			return nil, nil, fmt.Errorf("failed to start PostgreSQL: %w", err)
		}
		log.Info("PostgreSQL started", "port", s.config.PGPort)
		connString = s.pgDatabase.ConnectionString()
	}

	pool, err := pg.NewPool(ctx, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	if err := pg.Migrate(ctx, pool); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return admin.NewPostgresStore(pool), catalog.NewPostgresStore(pool), nil
}

func (s *Server) databaseName() string {
	if s.pool != nil {
		if name := s.pool.Config().ConnConfig.Database; name != "" {
			return name
		}
	}
	return s.config.PGDatabase
}

func (s *Server) waitForShutdown(ctx context.Context, errCh <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down...", "signal", sig)
	case <-ctx.Done():
		log.Info("context done, shutting down...")
	case runErr = <-errCh:
		log.Error("HTTP server failed", "error", runErr)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown incomplete", "error", err)
		}
	}
	s.Close()

	log.Info("shopdash stopped")
	return runErr
}

// Close releases the pool and stops the embedded database, if any.
func (s *Server) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	if s.pgDatabase != nil {
		s.pgDatabase.Stop()
		s.pgDatabase = nil
	}
}
