package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"priceindex-platform/internal/blsclient"
	"priceindex-platform/internal/config"
	"priceindex-platform/internal/handlers"
	"priceindex-platform/internal/repository"
	"priceindex-platform/internal/services"
	"priceindex-platform/pkg/database"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("priceindex-api", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting price index platform API server", logging.Fields{
		"version":      "1.0.0",
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"store_bucket": cfg.Store.Bucket,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("priceindex_platform")

	// Load catalog
	catalog, err := config.LoadCatalog(cfg.Pipeline.CatalogPath)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load catalog", logging.Fields{
			"catalog_path": cfg.Pipeline.CatalogPath,
		}, err)
	}

	// Catalog index is built once; a duplicate series ID is fatal here,
	// before any fetch can happen.
	index, err := services.BuildCatalogIndex(catalog)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid catalog", logging.Fields{}, err)
	}

	// Initialize object store
	store, err := repository.NewS3Store(ctx, repository.S3StoreConfig{
		Endpoint:        cfg.Store.Endpoint,
		Region:          cfg.Store.Region,
		Bucket:          cfg.Store.Bucket,
		AccessKeyID:     cfg.Store.AccessKeyID,
		SecretAccessKey: cfg.Store.SecretAccessKey,
	})
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize object store", logging.Fields{}, err)
	}

	// Initialize optional observation archive
	var archive repository.ArchiveRepository
	if cfg.Database.Enabled {
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		archive = repository.NewArchiveRepository(db, logger, metricsCollector)
	}

	// Initialize services
	source := blsclient.NewClient(cfg.DataSource.BaseURL, cfg.DataSource.Timeout, logger)
	normalizer := services.NewSeriesNormalizer(logger, metricsCollector)
	aggregator := services.NewRegionAggregator(index, normalizer, logger, metricsCollector)
	orchestrator := services.NewFetchOrchestrator(source, index, aggregator, cfg.DataSource.APIKey, logger, metricsCollector)
	composer := services.NewProjectionComposer(logger)
	sink := repository.NewStoreSink(store, repository.SinkConfig{
		CatalogMaxAge:  cfg.Store.CatalogMaxAge,
		SnapshotMaxAge: cfg.Store.SnapshotMaxAge,
		WriteItemFiles: cfg.Store.WriteItemFiles,
	}, logger, metricsCollector)

	pipeline := services.NewPipelineService(catalog, orchestrator, composer, sink, archive, cfg.Pipeline, logger, metricsCollector)

	// Initialize handlers
	pipelineHandler := handlers.NewPipelineHandler(pipeline, archive, cfg.Server.UpdateToken, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	pipelineHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
