package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileName is the default config file looked up in the working directory.
const FileName = "shopdash.json"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the complete shopdash configuration
type Config struct {
	// Server settings
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	DataDir     string   `json:"data_dir,omitempty"`
	Environment string   `json:"environment,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
	StaticDir   string   `json:"static_dir,omitempty"`

	// Storage settings. DatabaseURL points at an external PostgreSQL;
	// when empty an embedded instance is started from DataDir.
	Memory      bool   `json:"memory,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	PGPort      uint16 `json:"pg_port,omitempty"`
	PGUsername  string `json:"pg_username,omitempty"`
	PGPassword  string `json:"pg_password,omitempty"`
	PGDatabase  string `json:"pg_database,omitempty"`

	// JWT settings
	JWTSecret string `json:"jwt_secret,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
	LogFile   string `json:"log_file,omitempty"`
}

// IsProduction reports whether the config runs in the production posture.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Path returns the config file path: SHOPDASH_CONFIG if set, else FileName.
func Path() string {
	return getEnv("SHOPDASH_CONFIG", FileName)
}

// Load loads configuration from the config file (if it exists) with fallback to environment variables.
// The file takes precedence over environment variables for any fields that are set.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	applyEnvFallbacks(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Save writes cfg as indented JSON to path.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvFallbacks applies environment variable values to any unset config fields
func applyEnvFallbacks(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = getEnv("SHOPDASH_HOST", "")
	}
	if cfg.Port == 0 {
		cfg.Port = getEnvInt("SHOPDASH_PORT", 0)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = getEnv("SHOPDASH_DATA_DIR", "")
	}
	if cfg.Environment == "" {
		cfg.Environment = getEnv("SHOPDASH_ENV", "")
	}
	if len(cfg.CORSOrigins) == 0 {
		if v := getEnv("SHOPDASH_CORS_ORIGINS", ""); v != "" {
			cfg.CORSOrigins = splitList(v)
		}
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = getEnv("SHOPDASH_STATIC_DIR", "")
	}

	if !cfg.Memory {
		cfg.Memory = strings.ToLower(getEnv("SHOPDASH_MEMORY", "")) == "true"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getEnv("SHOPDASH_DATABASE_URL", getEnv("DATABASE_URL", ""))
	}
	if cfg.PGPort == 0 {
		cfg.PGPort = uint16(getEnvInt("SHOPDASH_PG_PORT", 0))
	}
	if cfg.PGUsername == "" {
		cfg.PGUsername = getEnv("SHOPDASH_PG_USERNAME", "")
	}
	if cfg.PGPassword == "" {
		cfg.PGPassword = getEnv("SHOPDASH_PG_PASSWORD", "")
	}
	if cfg.PGDatabase == "" {
		cfg.PGDatabase = getEnv("SHOPDASH_PG_DATABASE", "")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = getEnv("SHOPDASH_JWT_SECRET", getEnv("JWT_SECRET", ""))
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = getEnv("SHOPDASH_LOG_LEVEL", "")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = getEnv("SHOPDASH_LOG_FORMAT", "")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = getEnv("SHOPDASH_LOG_FILE", "")
	}
}

// setDefaults sets default values for any empty fields
func setDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.PGPort == 0 {
		cfg.PGPort = 5432
	}
	if cfg.PGUsername == "" {
		cfg.PGUsername = "postgres"
	}
	if cfg.PGPassword == "" {
		cfg.PGPassword = "postgres"
	}
	if cfg.PGDatabase == "" {
		cfg.PGDatabase = "shopdash"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

// getEnv gets an environment variable or returns the default value
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt gets an environment variable as an integer or returns the default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var intVal int
		if _, err := fmt.Sscanf(val, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
