package services

import (
	"context"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// SeriesNormalizer turns one series' raw points into a validated sequence
// ordered most recent first.
type SeriesNormalizer struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSeriesNormalizer creates a new series normalizer.
func NewSeriesNormalizer(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SeriesNormalizer {
	return &SeriesNormalizer{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// NormalizeStats counts per-series normalization outcomes.
type NormalizeStats struct {
	PointsKept    int
	PointsDropped int
}

// Normalize validates and sorts one series' points, descending
// chronologically (year, then month). A period code that does not parse
// fails the whole series: the sort contract cannot be honored without it. A
// value that fails decimal parsing drops only that point, with a warning.
func (n *SeriesNormalizer) Normalize(ctx context.Context, seriesID string, points []models.SeriesPoint) ([]models.NormalizedPoint, NormalizeStats, error) {
	stats := NormalizeStats{}
	normalized := make([]models.NormalizedPoint, 0, len(points))

	for _, point := range points {
		year, err := strconv.Atoi(point.Year)
		if err != nil {
			return nil, stats, &models.MalformedPeriodError{
				SeriesID: seriesID,
				Year:     point.Year,
				Period:   point.Period,
			}
		}

		month, err := models.ParsePeriod(point.Period)
		if err != nil {
			return nil, stats, &models.MalformedPeriodError{
				SeriesID: seriesID,
				Year:     point.Year,
				Period:   point.Period,
			}
		}

		monthKey := models.MonthKey(year, month)

		value, err := decimal.NewFromString(point.Value)
		if err != nil {
			stats.PointsDropped++
			n.metrics.RecordPointDropped("malformed_value")
			n.logger.Warn(ctx, "[NORMALIZE_DROP] Dropping point with malformed value", logging.Fields{
				"series_id": seriesID,
				"month":     monthKey,
				"value":     point.Value,
			})
			continue
		}

		normalized = append(normalized, models.NormalizedPoint{
			Year:         year,
			Month:        month,
			MonthKey:     monthKey,
			Value:        value,
			Calculations: point.Calculations,
		})
	}

	sort.Slice(normalized, func(i, j int) bool {
		if normalized[i].Year != normalized[j].Year {
			return normalized[i].Year > normalized[j].Year
		}
		return normalized[i].Month > normalized[j].Month
	})

	stats.PointsKept = len(normalized)
	n.metrics.PointsProcessedTotal.Add(float64(len(normalized)))

	return normalized, stats, nil
}
