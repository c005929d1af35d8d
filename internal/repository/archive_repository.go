package repository

import (
	"context"
	"fmt"
	"time"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/database"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// ArchiveRepository persists normalized observations and run bookkeeping to
// Postgres. The archive is a supplemental query surface; the object store
// projections remain the contract with downstream readers.
type ArchiveRepository interface {
	SaveObservationsBatch(ctx context.Context, observations []*models.PriceObservation) error
	RecordRun(ctx context.Context, run *models.PipelineRun) error
	GetRuns(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error)
	HealthCheck(ctx context.Context) error
}

// archiveRepository implements ArchiveRepository
type archiveRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewArchiveRepository creates a new archive repository.
func NewArchiveRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ArchiveRepository {
	return &archiveRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SaveObservationsBatch upserts normalized observations in a single
// transaction. Re-running a pipeline over the same window overwrites the
// same (region, data_key, month) rows rather than duplicating them.
func (r *archiveRepository) SaveObservationsBatch(ctx context.Context, observations []*models.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[ARCHIVE_BATCH] Batch upsert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_observations (region, data_key, month, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (region, data_key, month) DO UPDATE SET
			value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.Region,
			obs.DataKey,
			obs.Month,
			obs.Value,
			obs.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RecordRun upserts the bookkeeping row for one run.
func (r *archiveRepository) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (
			run_id, started_at, finished_at, status,
			regions_succeeded, regions_failed, series_processed, points_dropped,
			error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			regions_succeeded = EXCLUDED.regions_succeeded,
			regions_failed = EXCLUDED.regions_failed,
			series_processed = EXCLUDED.series_processed,
			points_dropped = EXCLUDED.points_dropped,
			error_message = EXCLUDED.error_message
	`

	_, err := r.db.ExecContext(ctx, "record_run", query,
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.Status,
		run.RegionsSucceeded,
		run.RegionsFailed,
		run.SeriesProcessed,
		run.PointsDropped,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// GetRuns retrieves recent runs, newest first.
func (r *archiveRepository) GetRuns(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	query := `
		SELECT run_id, started_at, finished_at, status,
		       regions_succeeded, regions_failed, series_processed, points_dropped,
		       error_message
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`

	var runs []*models.PipelineRun
	err := r.db.SelectContext(ctx, "get_runs", &runs, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}

	return runs, nil
}

// HealthCheck performs a repository health check.
func (r *archiveRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
