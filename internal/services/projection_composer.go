package services

import (
	"context"

	"github.com/shopspring/decimal"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
)

// ProjectionComposer combines per-region results into the named projections
// written by the sink. All projections built in one call share identical
// metadata.
type ProjectionComposer struct {
	logger *logging.StructuredLogger
}

// NewProjectionComposer creates a new projection composer.
func NewProjectionComposer(logger *logging.StructuredLogger) *ProjectionComposer {
	return &ProjectionComposer{logger: logger}
}

// DataRange derives the earliest and latest month key observed across all
// regions. Historical rows are already ascending, so only each region's
// first and last row matter.
func DataRange(results map[models.Region]*models.RegionResult) models.DataRange {
	var dataRange models.DataRange
	for _, result := range results {
		if len(result.Historical) == 0 {
			continue
		}
		first := result.Historical[0].Month
		last := result.Historical[len(result.Historical)-1].Month
		if dataRange.Start == "" || first < dataRange.Start {
			dataRange.Start = first
		}
		if dataRange.End == "" || last > dataRange.End {
			dataRange.End = last
		}
	}
	return dataRange
}

// Compose builds the projection set from whatever regions completed. A
// region missing from results (it failed to fetch) is simply absent from
// every projection; composition never fails on partial input.
func (c *ProjectionComposer) Compose(ctx context.Context, catalog *models.Catalog, results map[models.Region]*models.RegionResult, items []models.ItemProjection, meta models.Metadata) *models.ProjectionSet {
	set := &models.ProjectionSet{
		Regional: &models.RegionalProjection{
			Metadata: meta,
			Regions:  make(map[models.Region]models.RegionResult),
		},
		CurrentPrices: &models.CurrentPricesProjection{
			Metadata: meta,
			Regions:  make(map[models.Region]map[string]decimal.Decimal),
		},
		Categories: &models.CategoriesProjection{
			Metadata:   meta,
			Categories: make(map[string]models.CategoryView),
		},
	}

	if national, ok := results[models.RegionNational]; ok {
		set.National = &models.NationalProjection{
			Metadata: meta,
			Data:     *national,
		}
	} else {
		c.logger.Warn(ctx, "[COMPOSE_NO_NATIONAL] National region missing; detailed projection omitted", logging.Fields{})
	}

	for region, result := range results {
		set.Regional.Regions[region] = *result
		set.CurrentPrices.Regions[region] = result.Current
	}

	// Category views exist for every configured category, sliced per region
	// from the regional rollups and trends.
	for ci := range catalog.Categories {
		category := &catalog.Categories[ci]
		view := models.CategoryView{
			Name:    category.Name,
			Regions: make(map[models.Region]models.CategoryRegionView),
		}

		for region, result := range results {
			regionView := models.CategoryRegionView{
				Current: make(map[string]decimal.Decimal),
				Trends:  make(map[string]models.Trend),
			}
			if rollup, ok := result.Categories[category.ID]; ok {
				for dataKey, value := range rollup.Items {
					regionView.Current[dataKey] = value
					if trend, ok := result.Trends[dataKey]; ok {
						regionView.Trends[dataKey] = trend
					}
				}
			}
			view.Regions[region] = regionView
		}

		set.Categories.Categories[category.ID] = view
	}

	for _, item := range items {
		item.Metadata = meta
		set.Items = append(set.Items, item)
	}

	c.logger.Info(ctx, "[COMPOSE_COMPLETE] Projections composed", logging.Fields{
		"regions":      len(results),
		"categories":   len(set.Categories.Categories),
		"item_objects": len(set.Items),
		"has_national": set.National != nil,
	})

	return set
}
