package cmd

import (
	"fmt"
	"os"

	"github.com/markb/shopdash/internal/config"
	"github.com/markb/shopdash/internal/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

// Config file path, overrides SHOPDASH_CONFIG
var configFile string

var rootCmd = &cobra.Command{
	Use:   "shopdash",
	Short: "Shopdash - e-commerce admin dashboard backend",
	Long: `A single-binary admin dashboard for a small shop: admin accounts,
products and categories, backed by embedded or external PostgreSQL.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("SHOPDASH_CONFIG", configFile)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	versionTmpl := "shopdash version {{.Version}}"
	if BuildTime != "" {
		versionTmpl += " (built " + BuildTime
		if GitCommit != "" {
			versionTmpl += ", commit " + GitCommit
		}
		versionTmpl += ")"
	}
	versionTmpl += "\n"
	rootCmd.SetVersionTemplate(versionTmpl)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default shopdash.json, or SHOPDASH_CONFIG)")
}

// loadConfig loads the config file and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Setup(log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stdout: true,
	})
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
