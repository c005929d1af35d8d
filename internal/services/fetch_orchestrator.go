package services

import (
	"context"
	"strconv"
	"time"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// DataSource is the remote statistics API. Implementations must honor the
// two-level success contract: a non-2xx transport status or a non-succeeded
// application status is an error.
type DataSource interface {
	FetchSeries(ctx context.Context, req models.SeriesRequest) (*models.SeriesResponse, error)
}

// FetchOrchestrator drives the per-region fetch/aggregate loop.
//
// Regions are processed strictly sequentially to bound load on the upstream
// provider and keep diagnostic ordering deterministic. A failed region is
// skipped and recorded, never aborting the run: regions are independent and
// a partial dataset degrades gracefully for readers.
type FetchOrchestrator struct {
	source     DataSource
	index      *CatalogIndex
	aggregator *RegionAggregator
	apiKey     string
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewFetchOrchestrator creates a new fetch orchestrator.
func NewFetchOrchestrator(source DataSource, index *CatalogIndex, aggregator *RegionAggregator, apiKey string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FetchOrchestrator {
	return &FetchOrchestrator{
		source:     source,
		index:      index,
		aggregator: aggregator,
		apiKey:     apiKey,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// FetchOutput is the merged outcome of one orchestration pass.
type FetchOutput struct {
	Results    map[models.Region]*models.RegionResult
	ItemSeries []models.ItemProjection
	Failures   []models.RegionFailure
	Stats      AggregateStats
}

// FetchAll fetches and aggregates every region in the fixed enumeration for
// the given year window. Regions with an empty request list are skipped
// outright.
func (o *FetchOrchestrator) FetchAll(ctx context.Context, startYear, endYear int) *FetchOutput {
	out := &FetchOutput{
		Results: make(map[models.Region]*models.RegionResult),
	}

	for _, region := range models.AllRegions() {
		seriesIDs := o.index.SeriesIDs(region)
		if len(seriesIDs) == 0 {
			o.logger.Warn(ctx, "[FETCH_SKIP] No catalog series for region", logging.Fields{
				"region": string(region),
			})
			continue
		}

		request := models.SeriesRequest{
			SeriesIDs:       seriesIDs,
			StartYear:       strconv.Itoa(startYear),
			EndYear:         strconv.Itoa(endYear),
			RegistrationKey: o.apiKey,
			Calculations:    true,
			AnnualAverage:   false,
		}

		o.logger.Info(ctx, "[FETCH_START] Fetching region", logging.Fields{
			"region":       string(region),
			"series_count": len(seriesIDs),
			"start_year":   startYear,
			"end_year":     endYear,
		})

		start := time.Now()
		response, err := o.source.FetchSeries(ctx, request)
		o.metrics.FetchDuration.WithLabelValues(string(region)).Observe(time.Since(start).Seconds())

		if err != nil {
			fetchErr := &models.FetchError{Region: region, Message: "batch request failed", Err: err}
			out.Failures = append(out.Failures, models.RegionFailure{
				Region:  region,
				Message: fetchErr.Error(),
			})
			o.metrics.RecordFetchError(string(region), "request_failed")
			o.logger.Error(ctx, "[FETCH_FAILED] Region skipped", logging.Fields{
				"region": string(region),
			}, fetchErr)
			continue
		}

		aggregated := o.aggregator.Aggregate(ctx, region, response.Results.Series)
		out.Results[region] = aggregated.Result
		out.ItemSeries = append(out.ItemSeries, aggregated.ItemSeries...)
		out.Stats.SeriesProcessed += aggregated.Stats.SeriesProcessed
		out.Stats.SeriesUnmatched += aggregated.Stats.SeriesUnmatched
		out.Stats.SeriesFailed += aggregated.Stats.SeriesFailed
		out.Stats.PointsDropped += aggregated.Stats.PointsDropped
	}

	return out
}
