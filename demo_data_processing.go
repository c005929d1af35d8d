package main

import (
	"context"
	"fmt"
	"os"

	"priceindex-platform/internal/models"
	"priceindex-platform/internal/repository"
	"priceindex-platform/internal/services"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// DemoDataProcessing demonstrates the aggregation pipeline without network or database
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("PRICE INDEX PLATFORM - DATA PROCESSING DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	// Initialize logger and metrics
	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.ErrorLevel)
	metricsCollector := metrics.NewCollector("priceindex_demo")
	ctx := context.Background()

	// Build the catalog index from the built-in catalog
	catalog := models.DefaultCatalog()
	index, err := services.BuildCatalogIndex(catalog)
	if err != nil {
		fmt.Printf("Error building catalog index: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Catalog: %d categories\n", len(catalog.Categories))
	for _, region := range models.AllRegions() {
		fmt.Printf("  %-10s %d series\n", region, len(index.SeriesIDs(region)))
	}
	fmt.Println()

	// Canned upstream response for the national region. It includes a point
	// with a malformed value and a series outside the catalog to show how
	// both are absorbed.
	series := []models.RawSeries{
		{
			SeriesID: "APU0000708111", // eggs
			Data: []models.SeriesPoint{
				{Year: "2025", Period: "M06", Value: "3.77", Calculations: &models.Calculations{
					NetChanges: map[string]string{"1": "0.12"},
					PctChanges: map[string]string{"1": "3.3"},
				}},
				{Year: "2025", Period: "M05", Value: "3.65"},
				{Year: "2025", Period: "M04", Value: "not-a-number"},
				{Year: "2025", Period: "M03", Value: "3.51"},
			},
		},
		{
			SeriesID: "APU0000709112", // milk
			Data: []models.SeriesPoint{
				{Year: "2025", Period: "M06", Value: "4.02"},
				{Year: "2025", Period: "M05", Value: "3.98"},
			},
		},
		{
			SeriesID: "APU9999999999", // not in the catalog
			Data: []models.SeriesPoint{
				{Year: "2025", Period: "M06", Value: "1.00"},
			},
		},
	}

	// Aggregate the national region
	normalizer := services.NewSeriesNormalizer(logger, metricsCollector)
	aggregator := services.NewRegionAggregator(index, normalizer, logger, metricsCollector)

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Aggregating region: national")
	fmt.Println("─────────────────────────────────────────────────────────────")

	out := aggregator.Aggregate(ctx, models.RegionNational, series)

	fmt.Printf("  Series processed: %d\n", out.Stats.SeriesProcessed)
	fmt.Printf("  Series unmatched: %d\n", out.Stats.SeriesUnmatched)
	fmt.Printf("  Points dropped:   %d\n", out.Stats.PointsDropped)
	fmt.Println()

	fmt.Println("  Current prices:")
	for dataKey, value := range out.Result.Current {
		fmt.Printf("    %-12s %s", dataKey, value.StringFixed(2))
		if trend, ok := out.Result.Trends[dataKey]; ok {
			fmt.Printf("  (%s / %s%%)", trend.NetChange.String(), trend.PercentChange.String())
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Println("  Historical matrix (ascending):")
	for _, row := range out.Result.Historical {
		fmt.Printf("    %s:", row.Month)
		for dataKey, value := range row.Values {
			fmt.Printf(" %s=%s", dataKey, value.StringFixed(2))
		}
		fmt.Println()
	}
	fmt.Println()

	// Compose projections and write them to an in-memory store
	results := map[models.Region]*models.RegionResult{
		models.RegionNational: out.Result,
	}

	meta := models.Metadata{
		LastUpdated: "2025-07-01T00:00:00Z",
		RunID:       "demo",
		DataRange:   services.DataRange(results),
	}

	composer := services.NewProjectionComposer(logger)
	set := composer.Compose(ctx, catalog, results, out.ItemSeries, meta)

	store := repository.NewMemoryStore()
	sink := repository.NewStoreSink(store, repository.SinkConfig{
		CatalogMaxAge:  86400,
		SnapshotMaxAge: 3600,
	}, logger, metricsCollector)

	if err := sink.WriteProjections(ctx, catalog, set); err != nil {
		fmt.Printf("Error writing projections: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("─────────────────────────────────────────────────────────────")
	fmt.Println("Objects written to store")
	fmt.Println("─────────────────────────────────────────────────────────────")
	for _, key := range store.PutAttempts() {
		obj, _ := store.Get(key)
		fmt.Printf("  %-24s %6d bytes  cache-control: %s\n", key, len(obj.Body), obj.CacheControl)
	}

	fmt.Println()
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("✅ DATA PROCESSING DEMONSTRATION COMPLETE")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("The pipeline successfully:")
	fmt.Println("  ✓ Built the per-region series index from the catalog")
	fmt.Println("  ✓ Normalized raw observations (string → decimal, M-code → month)")
	fmt.Println("  ✓ Dropped the malformed value and skipped the unknown series")
	fmt.Println("  ✓ Derived current prices, trends and the historical matrix")
	fmt.Println("  ✓ Composed and persisted the named projections")
	fmt.Println()
	fmt.Println("Against live infrastructure, this would:")
	fmt.Println("  • Fetch every region from the statistics API sequentially")
	fmt.Println("  • Write projections to the configured S3-compatible bucket")
	fmt.Println("  • Archive observations to Postgres when enabled")
	fmt.Println("  • Expose run metrics on /metrics")
	fmt.Println()
}
