package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported values for DatabaseConfig.Driver
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	// Driver specifies the backend (mongo, postgres, sqlite)
	Driver string

	// MongoDB-specific configuration
	MongoURI      string
	MongoDatabase string

	// PostgreSQL-specific configuration
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// SQLite-specific configuration
	Path string
}

// NormalizedDriver folds driver aliases into one of the Driver constants
func (c *DatabaseConfig) NormalizedDriver() string {
	switch strings.ToLower(c.Driver) {
	case "mongo", "mongodb", "":
		return DriverMongo
	case "postgres", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return strings.ToLower(c.Driver)
	}
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	return fmt.Sprintf("DatabaseConfig{Driver: %s, MongoURI: %s, MongoDatabase: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s, Path: %s}",
		c.NormalizedDriver(), maskURI(c.MongoURI), c.MongoDatabase, c.Host, c.Port, c.User, c.Name, c.SSLMode, c.Path)
}

// DSN builds a Data Source Name string for the gorm backed drivers
func (c *DatabaseConfig) DSN() string {
	switch c.NormalizedDriver() {
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	case DriverSQLite:
		return c.Path
	default:
		return ""
	}
}

func maskURI(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}
	return parsed.String()
}
