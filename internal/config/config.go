package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/database"
	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// LevelForEnvironment maps APP_ENV to the default log level
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`

	// Database configuration
	Database database.DatabaseConfig `json:"-"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret          string `json:"jwt_secret"`
	JWTExpirationHours int    `json:"jwt_expiration_hours"`

	// Uploads
	UploadDir   string `json:"upload_dir"`
	MaxUploadMB int    `json:"max_upload_mb"`

	// HTTP surface
	CORSAllowedOrigin string `json:"cors_allowed_origin"`
	AdminAPIPrefix    string `json:"admin_api_prefix"`
	UserAPIPrefix     string `json:"user_api_prefix"`
	RiderAPIPrefix    string `json:"rider_api_prefix"`
	GeneralAPIPrefix  string `json:"general_api_prefix"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, Database: %s, LogLevel: %s, JWTSecret: [REDACTED], JWTExpirationHours: %d, UploadDir: %s, MaxUploadMB: %d, CORSAllowedOrigin: %s}",
		c.Environment, c.Port, c.Host, c.Database.String(), c.LogLevel, c.JWTExpirationHours, c.UploadDir, c.MaxUploadMB, c.CORSAllowedOrigin)
}

// Level returns LOG_LEVEL when it names a logrus level and the APP_ENV default otherwise
func (c *Config) Level() logrus.Level {
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		return level
	}
	return LevelForEnvironment(c.Environment)
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It validates the port, the database driver and the MongoDB URI.
// Returns an error if any required environment variable is missing or invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	dbCfg := database.DatabaseConfig{
		Driver:        GetEnvWithDefault("DB_DRIVER", database.DriverMongo),
		MongoURI:      GetEnvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: GetEnvWithDefault("MONGODB_DATABASE", "food_delivery"),
		Host:          GetEnvWithDefault("DB_HOST", "localhost"),
		Port:          GetEnvWithDefault("DB_PORT", "5432"),
		User:          GetEnvWithDefault("DB_USER", "user"),
		Password:      GetEnvWithDefault("DB_PASSWORD", "password"),
		Name:          GetEnvWithDefault("DB_NAME", "food_delivery"),
		SSLMode:       GetEnvWithDefault("DB_SSLMODE", "disable"),
		Path:          GetEnvWithDefault("DB_PATH", "food_delivery.db"),
	}

	switch dbCfg.NormalizedDriver() {
	case database.DriverMongo:
		// validate URI with net/url
		parsed, err := url.Parse(dbCfg.MongoURI)
		if err != nil || (parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv") {
			return nil, fmt.Errorf("invalid MONGODB_URI format")
		}
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", dbCfg.Driver)
	}

	config := &Config{
		Environment:        GetEnvWithDefault("APP_ENV", "development"),
		Port:               port,
		Host:               GetEnvWithDefault("APP_HOST", "localhost"),
		Database:           dbCfg,
		LogLevel:           GetEnvWithDefault("LOG_LEVEL", ""),
		JWTSecret:          GetEnvWithDefault("JWT_SECRET", "secret"),
		JWTExpirationHours: GetEnvAsType("JWT_EXPIRATION_HOURS", 24),
		UploadDir:          GetEnvWithDefault("UPLOAD_DIR", "images"),
		MaxUploadMB:        GetEnvAsType("MAX_UPLOAD_MB", 3),
		CORSAllowedOrigin:  GetEnvWithDefault("CORS_ALLOWED_ORIGIN", "*"),
		AdminAPIPrefix:     normalizePrefix(GetEnvWithDefault("ADMIN_API_PREFIX", "/api/v1")),
		UserAPIPrefix:      normalizePrefix(GetEnvWithDefault("USER_API_PREFIX", "/api/v2")),
		RiderAPIPrefix:     normalizePrefix(GetEnvWithDefault("RIDER_API_PREFIX", "/api/v3")),
		GeneralAPIPrefix:   normalizePrefix(GetEnvWithDefault("GENERAL_API_PREFIX", "/api")),
	}
	if config.JWTExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive")
	}
	if config.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

func normalizePrefix(prefix string) string {
	return "/" + strings.Trim(prefix, "/")
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
