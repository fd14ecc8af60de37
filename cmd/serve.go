package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/markb/shopdash/internal/config"
	"github.com/markb/shopdash/internal/server"
	"github.com/spf13/cobra"
)

var (
	// Flags that override config file/env vars
	flagHost        string
	flagPort        int
	flagEnvironment string
	flagCORSOrigins string
	flagStaticDir   string
	flagJwtSecret   string
	flagMemory      bool
	flagDatabaseURL string
	flagDataDir     string
	flagPgPort      uint16
	flagPgUsername  string
	flagPgPassword  string
	flagPgDatabase  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Shopdash server",
	Long: `Start the Shopdash API server.

Storage is in-memory with --memory, an external PostgreSQL with
--database-url, and an embedded PostgreSQL under --data-dir otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Flags take precedence over file and env vars
		applyFlagOverrides(cfg)

		srv := server.New(serverConfig(cfg))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Start(ctx)
	},
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Production:  cfg.IsProduction(),
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
		Memory:      cfg.Memory,
		DatabaseURL: cfg.DatabaseURL,
		DataDir:     cfg.DataDir,
		PGPort:      cfg.PGPort,
		PGUsername:  cfg.PGUsername,
		PGPassword:  cfg.PGPassword,
		PGDatabase:  cfg.PGDatabase,
	}
}

// applyFlagOverrides applies command-line flag values to the config
func applyFlagOverrides(cfg *config.Config) {
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagEnvironment != "" {
		cfg.Environment = flagEnvironment
	}
	if flagCORSOrigins != "" {
		var origins []string
		for _, o := range strings.Split(flagCORSOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	if flagStaticDir != "" {
		cfg.StaticDir = flagStaticDir
	}
	if flagJwtSecret != "" {
		cfg.JWTSecret = flagJwtSecret
	}
	if flagMemory {
		cfg.Memory = true
	}
	if flagDatabaseURL != "" {
		cfg.DatabaseURL = flagDatabaseURL
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagPgPort != 0 {
		cfg.PGPort = flagPgPort
	}
	if flagPgUsername != "" {
		cfg.PGUsername = flagPgUsername
	}
	if flagPgPassword != "" {
		cfg.PGPassword = flagPgPassword
	}
	if flagPgDatabase != "" {
		cfg.PGDatabase = flagPgDatabase
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringVar(&flagHost, "host", "", "Host to bind to (overrides config file and env vars)")
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Port to listen on (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagEnvironment, "environment", "", "development or production (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagCORSOrigins, "cors-origins", "", "Comma-separated allowed origins (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagStaticDir, "static-dir", "", "Directory with the built dashboard frontend")

	// Auth configuration
	serveCmd.Flags().StringVar(&flagJwtSecret, "jwt-secret", "", "Secret for signing session tokens (overrides config file and env vars)")

	// Database configuration
	serveCmd.Flags().BoolVar(&flagMemory, "memory", false, "Keep all data in memory; nothing survives a restart")
	serveCmd.Flags().StringVar(&flagDatabaseURL, "database-url", "", "External PostgreSQL URL; skips the embedded database")
	serveCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "Data directory for PostgreSQL (overrides config file and env vars)")
	serveCmd.Flags().Uint16Var(&flagPgPort, "pg-port", 0, "PostgreSQL port (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagPgUsername, "pg-username", "", "PostgreSQL username (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagPgPassword, "pg-password", "", "PostgreSQL password (overrides config file and env vars)")
	serveCmd.Flags().StringVar(&flagPgDatabase, "pg-database", "", "PostgreSQL database name (overrides config file and env vars)")
}
