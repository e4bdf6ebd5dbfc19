package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Retry policy shared by every backend: 5 attempts with exponential backoff
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// connectWithRetry calls connect until it succeeds or the attempts run out
func connectWithRetry(ctx context.Context, driver string, connect func() error) error {
	maxRetries := len(retryDelays)
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.WithFields(logrus.Fields{
			"db_driver":   driver,
			"attempt":     attempt,
			"max_retries": maxRetries,
		}).Info("Attempting database connection")

		if err = connect(); err == nil {
			log.WithFields(logrus.Fields{
				"db_driver": driver,
				"attempt":   attempt,
			}).Info("Database initialized successfully")
			return nil
		}

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Database connection attempt failed")

		// Don't wait after the last attempt
		if attempt < maxRetries {
			delay := retryDelays[attempt-1]
			log.WithField("delay", delay).Info("Retrying database connection")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// InitDatabase opens a gorm handle for the postgres and sqlite drivers.
// Unique violations are translated to gorm.ErrDuplicatedKey.
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	driver := cfg.NormalizedDriver()

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"db_host":   cfg.Host,
		"db_name":   cfg.Name,
		"db_path":   cfg.Path,
	}).Info("Initializing database connection")

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		log.WithField("dsn_host", cfg.Host).Debug("Connecting to PostgreSQL")
		dialector = postgres.Open(cfg.DSN())
	case DriverSQLite:
		log.WithField("db_path", cfg.Path).Debug("Connecting to SQLite")
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}

	var db *gorm.DB
	err := connectWithRetry(context.Background(), driver, func() error {
		opened, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err != nil {
			return err
		}
		sqlDB, err := opened.DB()
		if err != nil {
			log.WithError(err).Error("Failed to get database instance")
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			log.WithError(err).Error("Failed to ping database")
			return err
		}
		configureConnectionPool(sqlDB, driver)
		db = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// InitMongo connects to MongoDB and verifies the primary is reachable
func InitMongo(ctx context.Context, cfg DatabaseConfig) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("mongo driver selected but no connection URI configured")
	}

	log.WithFields(logrus.Fields{
		"db_driver":   DriverMongo,
		"db_uri":      maskURI(cfg.MongoURI),
		"db_database": cfg.MongoDatabase,
	}).Info("Initializing database connection")

	var client *mongo.Client
	err := connectWithRetry(ctx, DriverMongo, func() error {
		opts := options.Client().
			ApplyURI(cfg.MongoURI).
			SetMaxPoolSize(25).
			SetMinPoolSize(5).
			SetMaxConnIdleTime(5 * time.Minute).
			SetServerSelectionTimeout(10 * time.Second)

		connected, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := connected.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = connected.Disconnect(context.Background())
			log.WithError(err).Error("Failed to ping database")
			return err
		}
		client = connected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// configureConnectionPool sets up connection pool parameters.
// SQLite allows one writer, so its pool is pinned to a single connection.
func configureConnectionPool(sqlDB *sql.DB, driver string) {
	maxOpen, maxIdle := 25, 5
	if driver == DriverSQLite {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    maxIdle,
		"conn_max_lifetime": "5m",
	}).Debug("Connection pool configured")
}
