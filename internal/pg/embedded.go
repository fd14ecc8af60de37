package pg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5"
	"github.com/markb/shopdash/internal/log"
)

// EmbeddedDatabase runs a PostgreSQL instance owned by this process.
type EmbeddedDatabase struct {
	postgres *embeddedpostgres.EmbeddedPostgres
	config   Config
	mu       sync.Mutex
	started  bool
}

func NewEmbeddedDatabase(cfg Config) *EmbeddedDatabase {
	cfg.applyDefaults()
	return &EmbeddedDatabase{config: cfg}
}

func (db *EmbeddedDatabase) Start(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.started {
		return nil
	}

	config := embeddedpostgres.DefaultConfig().
		Port(uint32(db.config.Port)).
		Username(db.config.Username).
		Password(db.config.Password).
		Database(db.config.Database).
		Version(embeddedpostgres.PostgresVersion(db.config.Version))

	if db.config.DataDir != "" {
		if err := os.MkdirAll(db.config.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		config = config.DataPath(filepath.Join(db.config.DataDir, "pgdata"))
	}
	if db.config.RuntimePath != "" {
		config = config.RuntimePath(db.config.RuntimePath)
	}

	db.postgres = embeddedpostgres.NewDatabase(config)

	done := make(chan error, 1)
	go func() {
		done <- db.postgres.Start()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to start postgres: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("postgres start timed out: %w", ctx.Err())
	}

	if err := db.waitReady(ctx); err != nil {
		_ = db.postgres.Stop()
		return fmt.Errorf("postgres not ready: %w", err)
	}

	db.started = true
	log.Info("embedded PostgreSQL started", "port", db.config.Port)
	return nil
}

func (db *EmbeddedDatabase) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.started {
		return
	}

	if err := db.postgres.Stop(); err != nil {
		log.Warn("failed to stop embedded PostgreSQL", "error", err)
	}
	db.started = false
}

func (db *EmbeddedDatabase) ConnectionString() string {
	return db.config.ConnectionString()
}

func (db *EmbeddedDatabase) waitReady(ctx context.Context) error {
	const maxRetries = 60
	const retryDelay = 500 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		conn, err := pgx.Connect(ctx, db.ConnectionString())
		if err == nil {
			conn.Close(ctx)
			return nil
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("postgres did not become ready")
}
