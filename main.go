package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/healthlens/healthlens/internal/ai"
	"github.com/healthlens/healthlens/internal/blob"
	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/handler"
	"github.com/healthlens/healthlens/internal/middleware"
	"github.com/healthlens/healthlens/internal/pdf"
	"github.com/healthlens/healthlens/internal/security"
	"github.com/healthlens/healthlens/internal/service"
	"github.com/healthlens/healthlens/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize AI client
	aiClient, err := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI client", zap.Error(err))
	}

	// Initialize object storage: Azure when configured, in-memory otherwise
	var objects blob.ObjectStorage
	if cfg.Storage.AccountName != "" && cfg.Storage.AccountKey != "" {
		objects, err = blob.NewAzureClient(
			cfg.Storage.AccountName,
			cfg.Storage.AccountKey,
			cfg.Storage.ImageContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
	} else {
		logger.Warn("Azure storage not configured, using in-memory object storage")
		objects = blob.NewMemoryClient(logger)
	}

	// Network monitor backing the sync layer
	monitor := store.NewFlagMonitor(cfg.Sync.Online)

	// Choose the cloud syncer: real Postgres-backed sync or the simulated one
	var syncer store.CloudSyncer
	var pool *pgxpool.Pool
	if !cfg.Sync.Simulated && cfg.Sync.DatabaseURL != "" {
		pool, err = pgxpool.New(context.Background(), cfg.Sync.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to sync database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			logger.Fatal("Failed to ping sync database", zap.Error(err))
		}
		logger.Info("Successfully connected to sync database")

		syncer, err = store.NewPostgresSyncer(context.Background(), pool, monitor, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Postgres syncer", zap.Error(err))
		}
	} else {
		syncer = store.NewSimulatedSyncer(monitor, logger)
	}

	// Optional at-rest encryption of local records
	var encryptor *security.Encryptor
	if cfg.Storage.EncryptionKey != "" {
		encryptor, err = security.NewEncryptor([]byte(cfg.Storage.EncryptionKey))
		if err != nil {
			logger.Fatal("Failed to initialize encryptor", zap.Error(err))
		}
	}

	// Initialize the record store
	recordStore, err := store.New(cfg.Storage.DataDir, syncer, encryptor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize record store", zap.Error(err))
	}
	logger.Info("Record store ready", zap.String("user_id", recordStore.UserID()))

	// Initialize services
	analyzer := service.NewAnalyzer(aiClient, logger)
	chatSession := service.NewChatSession(aiClient, logger)
	app := service.NewApp(analyzer, chatSession, recordStore, objects, logger)

	// Initialize PDF generator
	pdfGenerator := pdf.NewGenerator(logger)

	// Initialize handlers
	appHandler := handler.NewAppHandler(app, logger)
	chatHandler := handler.NewChatHandler(app, logger)
	exportHandler := handler.NewExportHandler(app, pdfGenerator, objects, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Report-URL"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register API routes
	handler.RegisterRoutes(r, appHandler, chatHandler, exportHandler, healthHandler)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
