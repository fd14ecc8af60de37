package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/config"
	"github.com/markb/shopdash/internal/pg"
	"github.com/markb/shopdash/internal/prompt"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin users",
	Long: `Manage admin users directly in the database.

These commands bypass the HTTP API, so they work before any admin exists.`,
}

var adminAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new admin user",
	Long: `Add a new admin user to the database.

You will be prompted for a username, email address and password.`,
	RunE: runAdminAdd,
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all admin users",
	Long:  `List all admin users in the database.`,
	RunE:  runAdminList,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminAddCmd)
	adminCmd.AddCommand(adminListCmd)
}

// runAdminAdd adds a new admin user
func runAdminAdd(cmd *cobra.Command, args []string) error {
	fmt.Println("===========================================")
	fmt.Println("Add Admin User")
	fmt.Println("===========================================")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reader := prompt.NewReader()
	username, err := reader.Required("Username")
	if err != nil {
		return err
	}
	email, err := reader.Email("Email")
	if err != nil {
		return err
	}
	password, err := reader.Password("Password")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if err := reader.ConfirmPassword("Confirm password", password); err != nil {
		return err
	}

	fmt.Println()

	hash, err := admin.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, cleanup, err := connectToDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := admin.NewPostgresStore(pool).Create(ctx, username, email, hash)
	if errors.Is(err, admin.ErrDuplicateEmail) {
		return fmt.Errorf("an admin with email %s already exists", email)
	}
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("✓ Admin user created successfully!\n")
	fmt.Printf("  Username: %s\n", a.Username)
	fmt.Printf("  Email: %s\n", a.Email)
	fmt.Printf("  ID: %d\n", a.ID)
	fmt.Printf("  Created: %s\n", a.CreatedAt.Format(time.RFC3339))
	return nil
}

// runAdminList lists all admin users
func runAdminList(cmd *cobra.Command, args []string) error {
	fmt.Println("===========================================")
	fmt.Println("Admin Users")
	fmt.Println("===========================================")
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, cleanup, err := connectToDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	admins, err := admin.NewPostgresStore(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admin users found.")
		fmt.Println()
		fmt.Println("Create an admin user with:")
		fmt.Println("  ./shopdash admin add")
		return nil
	}

	fmt.Printf("Found %d admin user(s):\n", len(admins))
	fmt.Println()
	for i, a := range admins {
		fmt.Printf("%d. %s <%s>\n", i+1, a.Username, a.Email)
		fmt.Printf("   ID: %d\n", a.ID)
		fmt.Printf("   Created: %s\n", a.CreatedAt.Format(time.RFC3339))
		fmt.Println()
	}
	return nil
}

// connectToDatabase opens a pool on the configured database, starting the
// embedded one when no DatabaseURL is set, and applies the schema.
func connectToDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if cfg.Memory {
		return nil, nil, fmt.Errorf("admin commands need a database; memory mode keeps admins inside the server process")
	}

	connString := cfg.DatabaseURL
	var db *pg.EmbeddedDatabase
	if connString == "" {
		db = pg.NewEmbeddedDatabase(pg.Config{
			Port:     cfg.PGPort,
			Username: cfg.PGUsername,
			Password: cfg.PGPassword,
			Database: cfg.PGDatabase,
			DataDir:  cfg.DataDir,
		})

		fmt.Printf("Starting database...\n")
		if err := db.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to start database: %w", err)
		}
		connString = db.ConnectionString()
	}

	stop := func() {
		if db != nil {
			db.Stop()
		}
	}

	pool, err := pg.NewPool(ctx, connString)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pg.Migrate(ctx, pool); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	cleanup := func() {
		pool.Close()
		stop()
	}
	return pool, cleanup, nil
}
