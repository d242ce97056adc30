package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/api"
	"github.com/leafsii/journal-backend/internal/config"
	gdb "github.com/leafsii/journal-backend/internal/db"
	"github.com/leafsii/journal-backend/internal/jobs"
	"github.com/leafsii/journal-backend/internal/journal"
	"github.com/leafsii/journal-backend/internal/log"
	"github.com/leafsii/journal-backend/internal/metrics"
	"github.com/leafsii/journal-backend/internal/storage"
	"github.com/leafsii/journal-backend/internal/store"
	"github.com/leafsii/journal-backend/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting journal API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db", cfg.Database.Type,
		"storage", cfg.Storage.Backend,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("journal-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Database
	db, err := gdb.NewDatabase(&gdb.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.PostgresDSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}
	if err := gdb.ConnectAndMigrate(ctx, db, cfg.Database.AutoMigrate); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Disconnect(context.Background())
	logger.Infow("Database initialized", "type", cfg.Database.Type, "migrated", cfg.Database.AutoMigrate)

	// Blob storage
	blobs, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatalw("Failed to setup storage", "error", err)
	}
	if err := blobs.Health(ctx); err != nil {
		logger.Fatalw("Storage health check failed", "error", err)
	}

	// Setup Redis cache
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Cache ping failed", "error", err)
	}
	logger.Infow("Cache connection established", "in_memory", cache.IsInMemoryMode())

	svc := journal.NewService(db, blobs, logger,
		journal.WithCache(cache, cfg.Cache.TTL),
		journal.WithEvents(cache),
		journal.WithMetrics(metricsObj),
	)

	// Setup WebSocket hub and SSE handler
	wsHub := ws.NewHub(cache, cfg.Security.CORSAllowedOrigins, logger, metricsObj)
	sseHandler := ws.NewSSEHandler(cache, logger, metricsObj)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go wsHub.Run(hubCtx)

	if cfg.Sweep.Interval > 0 {
		sweeper := jobs.NewOrphanSweeper(svc, logger, jobs.OrphanSweeperConfig{
			Interval: cfg.Sweep.Interval,
			Grace:    cfg.Sweep.Grace,
		})
		go func() {
			if err := sweeper.Start(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("Orphan sweeper stopped", "error", err)
			}
		}()
	}

	// Setup API handler and middleware
	handler := api.NewHandler(svc, wsHub, sseHandler, logger, cfg.Storage.MaxUploadBytes)
	middleware := api.NewMiddleware(logger, metricsObj)
	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, metricsHandler)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// No write timeout: SSE streams stay open and JSON routes carry their own
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return hubCtx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// request contexts derive from hubCtx, so this also ends open SSE streams
		hubCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.SugaredLogger) (storage.Storage, error) {
	switch cfg.Backend {
	case "s3":
		logger.Infow("Using S3 storage", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	default:
		logger.Infow("Using local storage", "dir", cfg.UploadDir)
		return storage.NewLocalStorage(cfg.UploadDir)
	}
}
