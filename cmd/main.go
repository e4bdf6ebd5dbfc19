package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-food-delivery-api/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/config"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/database"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/router"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// @title Food Delivery API
// @version 1.0
// @description Catalog, ordering and delivery lifecycle for admins, users and riders
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration := loadConfig()
	log.SetLevel(configuration.Level())
	if configuration.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open the store selected by DB_DRIVER
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	st, err := setupStore(ctx, configuration.Database)
	checkPanicErr(err)

	collectors := metrics.New()
	tokens := auth.NewTokenManager(configuration.JWTSecret, time.Duration(configuration.JWTExpirationHours)*time.Hour)
	uploads, err := upload.NewStorage(configuration.UploadDir, int64(configuration.MaxUploadMB)<<20, log.StandardLogger())
	checkPanicErr(err)

	engine, err := router.New(router.Dependencies{
		Config:   configuration,
		Accounts: services.NewAccountService(st, tokens, log.StandardLogger()),
		Catalog:  services.NewCatalogService(st, log.StandardLogger()),
		Engine:   lifecycle.NewEngine(st, collectors, log.StandardLogger()),
		Uploads:  uploads,
		Tokens:   tokens,
		Metrics:  collectors,
		Log:      log.StandardLogger(),
	})
	checkPanicErr(err)

	server := &http.Server{
		Addr:              configuration.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", configuration.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to close store")
	}
	log.Info("Server exited")
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and the APP_ENV level
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(config.LevelForEnvironment(config.GetEnvWithDefault("APP_ENV", "development")))
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	return conf
}

// setupStore connects to MongoDB or to a SQL database through gorm and prepares the schema
func setupStore(ctx context.Context, cfg database.DatabaseConfig) (store.Store, error) {
	if cfg.NormalizedDriver() == database.DriverMongo {
		client, err := database.InitMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mongoStore := store.NewMongoStore(client, cfg.MongoDatabase)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return mongoStore, nil
	}

	db, err := database.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	gormStore := store.NewGormStore(db)
	if err := gormStore.AutoMigrate(); err != nil {
		return nil, err
	}
	return gormStore, nil
}
