package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"priceindex-platform/internal/blsclient"
	"priceindex-platform/internal/config"
	"priceindex-platform/internal/models"
	"priceindex-platform/internal/repository"
	"priceindex-platform/internal/services"
	"priceindex-platform/pkg/database"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	schedule := flag.Bool("schedule", false, "Keep running and trigger a run on a fixed interval")
	interval := flag.Duration("interval", 24*time.Hour, "Interval between scheduled runs")
	flag.Parse()

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

	logger := logging.NewStructuredLogger("priceindex-pipeline", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[PIPELINE_START] Starting price index pipeline", logging.Fields{
		"version":      "1.0.0",
		"schedule":     *schedule,
		"interval":     interval.String(),
		"store_bucket": cfg.Store.Bucket,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("priceindex_pipeline")

	// Load catalog and build the series index
	catalog, err := config.LoadCatalog(cfg.Pipeline.CatalogPath)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to load catalog", logging.Fields{
			"catalog_path": cfg.Pipeline.CatalogPath,
		}, err)
	}

	index, err := services.BuildCatalogIndex(catalog)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Invalid catalog", logging.Fields{}, err)
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
		logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to initialize object store", logging.Fields{}, err)
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
			logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to connect to database", logging.Fields{}, err)
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

	if !*schedule {
		result, err := pipeline.Run(ctx)
		printRunResult(result)
		if err != nil {
			logger.Fatal(ctx, "[PIPELINE_ERROR] Run failed", logging.Fields{}, err)
		}

		logger.Info(ctx, "[PIPELINE_COMPLETE] Run completed successfully", logging.Fields{
			"run_id":            result.RunID,
			"regions_succeeded": len(result.RegionsSucceeded),
			"regions_failed":    len(result.RegionsFailed),
			"duration_seconds":  result.DurationSeconds,
		})
		return
	}

	// Scheduled mode: run immediately, then on the configured interval until
	// interrupted.
	scheduler := gocron.NewScheduler(time.UTC)

	_, err = scheduler.Every(*interval).Do(func() {
		result, err := pipeline.Run(ctx)
		if err != nil {
			logger.Error(ctx, "[SCHEDULED_RUN_ERROR] Scheduled run failed", logging.Fields{}, err)
			return
		}

		logger.Info(ctx, "[SCHEDULED_RUN_COMPLETE] Scheduled run completed", logging.Fields{
			"run_id":            result.RunID,
			"regions_succeeded": len(result.RegionsSucceeded),
			"regions_failed":    len(result.RegionsFailed),
			"duration_seconds":  result.DurationSeconds,
		})
	})
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to schedule runs", logging.Fields{}, err)
	}

	scheduler.StartAsync()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[PIPELINE_STOP] Stopping scheduler...", logging.Fields{})
	scheduler.Stop()
	logger.Info(ctx, "[PIPELINE_STOPPED] Scheduler stopped", logging.Fields{})
}

func printRunResult(result *models.RunResult) {
	if result == nil {
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PIPELINE RUN COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:            %s\n", result.RunID)
	fmt.Printf("Started At:        %s\n", result.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration:          %v\n", result.Duration)
	fmt.Printf("Regions Succeeded: %d\n", len(result.RegionsSucceeded))
	fmt.Printf("Regions Failed:    %d\n", len(result.RegionsFailed))
	fmt.Printf("Series Processed:  %d\n", result.SeriesProcessed)
	fmt.Printf("Series Unmatched:  %d\n", result.SeriesUnmatched)
	fmt.Printf("Series Failed:     %d\n", result.SeriesFailed)
	fmt.Printf("Points Dropped:    %d\n", result.PointsDropped)

	if len(result.RegionsFailed) > 0 {
		fmt.Printf("\nFailed Regions (%d):\n", len(result.RegionsFailed))
		for _, failure := range result.RegionsFailed {
			fmt.Printf("  - %s: %s\n", failure.Region, failure.Message)
		}
	}
}
