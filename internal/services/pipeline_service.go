package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"priceindex-platform/internal/config"
	"priceindex-platform/internal/models"
	"priceindex-platform/internal/repository"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// ErrRunInProgress is returned when a run is requested while another run is
// still executing. Scheduled and manually triggered invocations share the
// same store keys, so overlapping runs would interleave writes
// non-deterministically.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

const (
	runStatusSucceeded = "succeeded"
	runStatusPartial   = "partial"
	runStatusFailed    = "failed"
)

// PipelineService executes one full aggregation run: fetch all regions,
// compose projections, persist them, and optionally archive normalized
// observations.
type PipelineService struct {
	catalog      *models.Catalog
	orchestrator *FetchOrchestrator
	composer     *ProjectionComposer
	sink         *repository.StoreSink
	archive      repository.ArchiveRepository // nil when the archive is disabled
	pipelineCfg  config.PipelineConfig
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
	running      atomic.Bool
}

// NewPipelineService creates a new pipeline service. archive may be nil.
func NewPipelineService(
	catalog *models.Catalog,
	orchestrator *FetchOrchestrator,
	composer *ProjectionComposer,
	sink *repository.StoreSink,
	archive repository.ArchiveRepository,
	pipelineCfg config.PipelineConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PipelineService {
	return &PipelineService{
		catalog:      catalog,
		orchestrator: orchestrator,
		composer:     composer,
		sink:         sink,
		archive:      archive,
		pipelineCfg:  pipelineCfg,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// Run executes one pipeline run. Per-region fetch failures degrade the
// output rather than failing the run; a persistence failure fails the run
// after every write was attempted. Projections written before a failure are
// not rolled back.
func (s *PipelineService) Run(ctx context.Context) (*models.RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	s.metrics.RunsInProgress.Set(1)
	defer s.metrics.RunsInProgress.Set(0)

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	startedAt := time.Now().UTC()
	startYear, endYear := s.pipelineCfg.YearWindow(startedAt)

	s.logger.Info(ctx, "[RUN_START] Starting pipeline run", logging.Fields{
		"start_year": startYear,
		"end_year":   endYear,
		"stage":      "INITIALIZATION",
	})

	fetched := s.orchestrator.FetchAll(ctx, startYear, endYear)

	meta := models.Metadata{
		LastUpdated: startedAt.Format(time.RFC3339),
		RunID:       runID,
		DataRange:   DataRange(fetched.Results),
	}

	set := s.composer.Compose(ctx, s.catalog, fetched.Results, fetched.ItemSeries, meta)

	result := &models.RunResult{
		RunID:         runID,
		StartedAt:     startedAt,
		RegionsFailed: fetched.Failures,
	}
	for _, region := range models.AllRegions() {
		if _, ok := fetched.Results[region]; ok {
			result.RegionsSucceeded = append(result.RegionsSucceeded, region)
		}
	}
	result.SeriesProcessed = fetched.Stats.SeriesProcessed
	result.SeriesUnmatched = fetched.Stats.SeriesUnmatched
	result.SeriesFailed = fetched.Stats.SeriesFailed
	result.PointsDropped = fetched.Stats.PointsDropped

	sinkErr := s.sink.WriteProjections(ctx, s.catalog, set)

	if s.archive != nil {
		s.archiveRun(ctx, startedAt, fetched, result, sinkErr)
	}

	result.Duration = time.Since(startedAt)
	result.DurationSeconds = result.Duration.Seconds()
	s.metrics.RunDuration.Observe(result.DurationSeconds)

	status := runStatusSucceeded
	switch {
	case sinkErr != nil:
		status = runStatusFailed
	case len(result.RegionsFailed) > 0:
		status = runStatusPartial
	}
	s.metrics.RecordRun(status)

	s.logger.Info(ctx, "[RUN_COMPLETE] Pipeline run finished", logging.Fields{
		"status":            status,
		"regions_succeeded": len(result.RegionsSucceeded),
		"regions_failed":    len(result.RegionsFailed),
		"series_processed":  result.SeriesProcessed,
		"series_unmatched":  result.SeriesUnmatched,
		"points_dropped":    result.PointsDropped,
		"duration_seconds":  result.DurationSeconds,
		"stage":             "COMPLETE",
	})

	if sinkErr != nil {
		return result, sinkErr
	}
	return result, nil
}

// archiveRun writes observations and run bookkeeping to the relational
// archive. Archive failures are logged but never fail the run: the object
// store projections are the contract, the archive is supplemental.
func (s *PipelineService) archiveRun(ctx context.Context, startedAt time.Time, fetched *FetchOutput, result *models.RunResult, sinkErr error) {
	var observations []*models.PriceObservation
	for region, regionResult := range fetched.Results {
		for _, row := range regionResult.Historical {
			for dataKey, value := range row.Values {
				observations = append(observations, &models.PriceObservation{
					Region:    string(region),
					DataKey:   dataKey,
					Month:     row.Month,
					Value:     value,
					CreatedAt: startedAt,
				})
			}
		}
	}

	if err := s.archive.SaveObservationsBatch(ctx, observations); err != nil {
		s.logger.Error(ctx, "[ARCHIVE_ERROR] Failed to archive observations", logging.Fields{
			"count": len(observations),
		}, err)
	}

	finishedAt := time.Now().UTC()
	run := &models.PipelineRun{
		RunID:            result.RunID,
		StartedAt:        startedAt,
		FinishedAt:       &finishedAt,
		Status:           runStatusSucceeded,
		RegionsSucceeded: len(result.RegionsSucceeded),
		RegionsFailed:    len(result.RegionsFailed),
		SeriesProcessed:  result.SeriesProcessed,
		PointsDropped:    result.PointsDropped,
	}
	if sinkErr != nil {
		run.Status = runStatusFailed
		msg := sinkErr.Error()
		run.ErrorMessage = &msg
	} else if len(result.RegionsFailed) > 0 {
		run.Status = runStatusPartial
	}

	if err := s.archive.RecordRun(ctx, run); err != nil {
		s.logger.Error(ctx, "[ARCHIVE_ERROR] Failed to record run", logging.Fields{}, err)
	}
}
