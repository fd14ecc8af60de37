package pg

import "fmt"

// Config holds the configuration for the embedded PostgreSQL database
type Config struct {
	Port        uint16
	Username    string
	Password    string
	Database    string
	DataDir     string
	Version     string
	RuntimePath string // Optional: unique runtime path to avoid conflicts
}

const defaultVersion = "16.9.0"

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Username == "" {
		c.Username = "postgres"
	}
	if c.Password == "" {
		c.Password = "postgres"
	}
	if c.Database == "" {
		c.Database = "shopdash"
	}
	if c.Version == "" {
		c.Version = defaultVersion
	}
}

// ConnectionString returns the URL used to reach the embedded instance.
func (c Config) ConnectionString() string {
	c.applyDefaults()
	return fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		c.Username, c.Password, c.Port, c.Database)
}
