// Package pgtest starts a throwaway embedded PostgreSQL for integration tests.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/markb/shopdash/internal/pg"
)

// Start launches PostgreSQL on port, applies the schema and returns a pool.
// The test is skipped under -short or when the database cannot start.
// Everything is torn down with t.Cleanup.
func Start(t *testing.T, port uint16) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	dir := t.TempDir()
	db := pg.NewEmbeddedDatabase(pg.Config{
		Port:        port,
		Username:    "test",
		Password:    "test",
		Database:    "testdb",
		DataDir:     dir,
		RuntimePath: filepath.Join(os.TempDir(), fmt.Sprintf("shopdash-pgtest-%d", port)),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := db.Start(ctx); err != nil {
		t.Skipf("Cannot start embedded PostgreSQL: %v", err)
	}
	t.Cleanup(db.Stop)

	pool, err := pg.NewPool(ctx, db.ConnectionString())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pg.Migrate(ctx, pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return pool
}
