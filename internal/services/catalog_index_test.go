package services

import (
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry())
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Categories: []models.Category{
			{
				ID:   "dairy",
				Name: "Dairy",
				Items: []models.CatalogItem{
					{
						DataKey: "eggs",
						Name:    "Eggs",
						Unit:    "per dozen",
						SeriesIDs: map[models.Region]string{
							models.RegionNational: "S-EGGS-NAT",
							models.RegionWest:     "S-EGGS-WEST",
						},
					},
					{
						DataKey: "milk",
						Name:    "Milk",
						Unit:    "per gallon",
						SeriesIDs: map[models.Region]string{
							models.RegionNational: "S-MILK-NAT",
							models.RegionWest:     "S-MILK-WEST",
						},
					},
				},
			},
			{
				ID:   "energy",
				Name: "Energy",
				Items: []models.CatalogItem{
					{
						DataKey: "gas",
						Name:    "Gasoline",
						Unit:    "per gallon",
						SeriesIDs: map[models.Region]string{
							// National only; excluded from regional requests.
							models.RegionNational: "S-GAS-NAT",
						},
					},
				},
			},
		},
	}
}

func TestBuildCatalogIndexOrdering(t *testing.T) {
	index, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("BuildCatalogIndex failed: %v", err)
	}

	national := index.SeriesIDs(models.RegionNational)
	want := []string{"S-EGGS-NAT", "S-MILK-NAT", "S-GAS-NAT"}
	if len(national) != len(want) {
		t.Fatalf("national series = %v, want %v", national, want)
	}
	for i := range want {
		if national[i] != want[i] {
			t.Errorf("national[%d] = %q, want %q", i, national[i], want[i])
		}
	}

	// Building from the same catalog again must yield the same order.
	index2, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("second BuildCatalogIndex failed: %v", err)
	}
	again := index2.SeriesIDs(models.RegionNational)
	for i := range national {
		if national[i] != again[i] {
			t.Errorf("ordering not deterministic at %d: %q vs %q", i, national[i], again[i])
		}
	}
}

func TestBuildCatalogIndexRegionExclusion(t *testing.T) {
	index, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("BuildCatalogIndex failed: %v", err)
	}

	west := index.SeriesIDs(models.RegionWest)
	for _, id := range west {
		if id == "S-GAS-NAT" {
			t.Error("national-only series leaked into west request list")
		}
	}
	if len(west) != 2 {
		t.Errorf("west series count = %d, want 2", len(west))
	}

	if ids := index.SeriesIDs(models.RegionSouth); len(ids) != 0 {
		t.Errorf("south should have no series, got %v", ids)
	}
}

func TestBuildCatalogIndexResolve(t *testing.T) {
	index, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("BuildCatalogIndex failed: %v", err)
	}

	entry, ok := index.Resolve(models.RegionNational, "S-MILK-NAT")
	if !ok {
		t.Fatal("expected milk series to resolve")
	}
	if entry.Item.DataKey != "milk" {
		t.Errorf("resolved data key = %q, want milk", entry.Item.DataKey)
	}
	if entry.Category.ID != "dairy" {
		t.Errorf("resolved category = %q, want dairy", entry.Category.ID)
	}

	if _, ok := index.Resolve(models.RegionWest, "S-MILK-NAT"); ok {
		t.Error("national series should not resolve in west")
	}
	if _, ok := index.Resolve(models.RegionNational, "UNKNOWN"); ok {
		t.Error("unknown series should not resolve")
	}
}

func TestBuildCatalogIndexDuplicateSeries(t *testing.T) {
	catalog := testCatalog()
	// Give gas the same national series ID as eggs.
	catalog.Categories[1].Items[0].SeriesIDs[models.RegionNational] = "S-EGGS-NAT"

	_, err := BuildCatalogIndex(catalog)
	if err == nil {
		t.Fatal("expected duplicate series ID to fail index construction")
	}

	var confErr *models.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}
