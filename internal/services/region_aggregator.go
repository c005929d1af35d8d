package services

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// RegionAggregator consumes one region's raw DataSource response and
// produces its RegionResult.
type RegionAggregator struct {
	index      *CatalogIndex
	normalizer *SeriesNormalizer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewRegionAggregator creates a new region aggregator.
func NewRegionAggregator(index *CatalogIndex, normalizer *SeriesNormalizer, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RegionAggregator {
	return &RegionAggregator{
		index:      index,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// AggregateStats counts per-region aggregation outcomes.
type AggregateStats struct {
	SeriesProcessed int
	SeriesUnmatched int
	SeriesFailed    int
	PointsDropped   int
}

// AggregateOutput is the result of aggregating one region.
type AggregateOutput struct {
	Result *models.RegionResult
	// ItemSeries retains the matched raw series for the optional
	// per-(region, item) projections.
	ItemSeries []models.ItemProjection
	Stats      AggregateStats
}

// Aggregate builds a RegionResult from the returned series.
//
// Per-point and per-series problems are absorbed here: an unmatched series
// identifier is skipped with a diagnostic (the API may return series outside
// the current catalog after catalog edits), and a series failing
// normalization is dropped without affecting its siblings. The current value
// is taken from the head of the descending-sorted sequence; the historical
// matrix is then materialized ascending, since the two consumers want
// opposite orderings and the descending sort already exists.
func (a *RegionAggregator) Aggregate(ctx context.Context, region models.Region, series []models.RawSeries) *AggregateOutput {
	out := &AggregateOutput{
		Result: &models.RegionResult{
			Current:    make(map[string]decimal.Decimal),
			Trends:     make(map[string]models.Trend),
			Historical: make([]models.HistoricalRow, 0),
			Categories: make(map[string]models.CategoryRollup),
		},
	}

	// Month keys key a row, not a cell: values from different items land in
	// the same row without colliding.
	monthly := make(map[string]map[string]decimal.Decimal)

	for _, raw := range series {
		entry, ok := a.index.Resolve(region, raw.SeriesID)
		if !ok {
			out.Stats.SeriesUnmatched++
			a.metrics.SeriesUnmatchedTotal.Inc()
			a.logger.Warn(ctx, "[AGGREGATE_UNMATCHED] Returned series has no catalog owner", logging.Fields{
				"region":    string(region),
				"series_id": raw.SeriesID,
			})
			continue
		}

		points, stats, err := a.normalizer.Normalize(ctx, raw.SeriesID, raw.Data)
		out.Stats.PointsDropped += stats.PointsDropped
		if err != nil {
			var periodErr *models.MalformedPeriodError
			if errors.As(err, &periodErr) {
				a.metrics.RecordPointDropped("malformed_period")
			}
			out.Stats.SeriesFailed++
			a.metrics.SeriesFailedTotal.Inc()
			a.logger.Error(ctx, "[AGGREGATE_SERIES_FAILED] Series failed normalization", logging.Fields{
				"region":    string(region),
				"series_id": raw.SeriesID,
				"data_key":  entry.Item.DataKey,
			}, err)
			continue
		}

		out.Stats.SeriesProcessed++
		a.metrics.SeriesProcessedTotal.Inc()

		// An item with zero surviving points contributes nothing to
		// current/trends/historical this run; it still appears in its
		// category shell below.
		if len(points) > 0 {
			head := points[0]
			out.Result.Current[entry.Item.DataKey] = head.Value
			if trend, ok := head.Trend(); ok {
				out.Result.Trends[entry.Item.DataKey] = trend
			}
		}

		for _, point := range points {
			row, ok := monthly[point.MonthKey]
			if !ok {
				row = make(map[string]decimal.Decimal)
				monthly[point.MonthKey] = row
			}
			row[entry.Item.DataKey] = point.Value
		}

		out.ItemSeries = append(out.ItemSeries, models.ItemProjection{
			Region:   region,
			DataKey:  entry.Item.DataKey,
			Name:     entry.Item.Name,
			Unit:     entry.Item.Unit,
			SeriesID: raw.SeriesID,
			Points:   raw.Data,
		})
	}

	// Materialize the month-keyed accumulator as an ascending sequence. Zero
	// padding makes the lexicographic sort chronological.
	months := make([]string, 0, len(monthly))
	for month := range monthly {
		months = append(months, month)
	}
	sort.Strings(months)

	for _, month := range months {
		out.Result.Historical = append(out.Result.Historical, models.HistoricalRow{
			Month:  month,
			Values: monthly[month],
		})
	}

	// A shell entry exists for every configured category, even when no
	// series data matched.
	catalog := a.index.Catalog()
	for ci := range catalog.Categories {
		category := &catalog.Categories[ci]
		rollup := models.CategoryRollup{
			Name:  category.Name,
			Items: make(map[string]decimal.Decimal),
		}
		for ii := range category.Items {
			dataKey := category.Items[ii].DataKey
			if value, ok := out.Result.Current[dataKey]; ok {
				rollup.Items[dataKey] = value
			}
		}
		out.Result.Categories[category.ID] = rollup
	}

	a.logger.Info(ctx, "[AGGREGATE_COMPLETE] Region aggregated", logging.Fields{
		"region":           string(region),
		"series_processed": out.Stats.SeriesProcessed,
		"series_unmatched": out.Stats.SeriesUnmatched,
		"series_failed":    out.Stats.SeriesFailed,
		"points_dropped":   out.Stats.PointsDropped,
		"historical_rows":  len(out.Result.Historical),
	})

	return out
}
