package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"priceindex-platform/internal/models"
)

// fakeDataSource serves canned responses keyed by the first series ID of the
// request, which identifies the region under the test catalog.
type fakeDataSource struct {
	responses map[string]*models.SeriesResponse
	errs      map[string]error
	requests  []models.SeriesRequest
}

func (f *fakeDataSource) FetchSeries(_ context.Context, req models.SeriesRequest) (*models.SeriesResponse, error) {
	f.requests = append(f.requests, req)

	key := req.SeriesIDs[0]
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if resp, ok := f.responses[key]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("no canned response for %s", key)
}

func successResponse(series ...models.RawSeries) *models.SeriesResponse {
	resp := &models.SeriesResponse{Status: models.StatusSucceeded}
	resp.Results.Series = series
	return resp
}

func newTestOrchestrator(t *testing.T, source DataSource) *FetchOrchestrator {
	t.Helper()
	index, err := BuildCatalogIndex(testCatalog())
	if err != nil {
		t.Fatalf("BuildCatalogIndex failed: %v", err)
	}
	normalizer := NewSeriesNormalizer(testLogger(), testMetrics())
	aggregator := NewRegionAggregator(index, normalizer, testLogger(), testMetrics())
	return NewFetchOrchestrator(source, index, aggregator, "test-key", testLogger(), testMetrics())
}

func TestFetchAllSuccess(t *testing.T) {
	source := &fakeDataSource{
		responses: map[string]*models.SeriesResponse{
			"S-EGGS-NAT": successResponse(models.RawSeries{
				SeriesID: "S-EGGS-NAT",
				Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "3.77"}},
			}),
			"S-EGGS-WEST": successResponse(models.RawSeries{
				SeriesID: "S-EGGS-WEST",
				Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "3.99"}},
			}),
		},
	}

	orchestrator := newTestOrchestrator(t, source)
	out := orchestrator.FetchAll(context.Background(), 2005, 2025)

	// The test catalog only defines series for national and west; the other
	// regions are skipped without a request.
	if len(source.requests) != 2 {
		t.Fatalf("requests made = %d, want 2", len(source.requests))
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d regions, want 2", len(out.Results))
	}
	if len(out.Failures) != 0 {
		t.Errorf("failures = %v, want none", out.Failures)
	}

	if out.Results[models.RegionNational].Current["eggs"].String() != "3.77" {
		t.Errorf("national eggs = %s", out.Results[models.RegionNational].Current["eggs"])
	}
	if out.Results[models.RegionWest].Current["eggs"].String() != "3.99" {
		t.Errorf("west eggs = %s", out.Results[models.RegionWest].Current["eggs"])
	}
}

func TestFetchAllRequestShape(t *testing.T) {
	source := &fakeDataSource{
		responses: map[string]*models.SeriesResponse{
			"S-EGGS-NAT":  successResponse(),
			"S-EGGS-WEST": successResponse(),
		},
	}

	orchestrator := newTestOrchestrator(t, source)
	orchestrator.FetchAll(context.Background(), 2005, 2025)

	if len(source.requests) == 0 {
		t.Fatal("no requests made")
	}

	req := source.requests[0]
	if req.StartYear != "2005" || req.EndYear != "2025" {
		t.Errorf("year window = %s..%s, want 2005..2025", req.StartYear, req.EndYear)
	}
	if req.RegistrationKey != "test-key" {
		t.Errorf("registration key = %q", req.RegistrationKey)
	}
	if !req.Calculations {
		t.Error("calculations should be requested")
	}
	if req.AnnualAverage {
		t.Error("annual averages should not be requested")
	}
}

func TestFetchAllRegionFailureSkipped(t *testing.T) {
	source := &fakeDataSource{
		responses: map[string]*models.SeriesResponse{
			"S-EGGS-NAT": successResponse(models.RawSeries{
				SeriesID: "S-EGGS-NAT",
				Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "3.77"}},
			}),
		},
		errs: map[string]error{
			"S-EGGS-WEST": errors.New("connection reset"),
		},
	}

	orchestrator := newTestOrchestrator(t, source)
	out := orchestrator.FetchAll(context.Background(), 2005, 2025)

	// Both regions were attempted despite the failure.
	if len(source.requests) != 2 {
		t.Fatalf("requests made = %d, want 2", len(source.requests))
	}

	if _, ok := out.Results[models.RegionNational]; !ok {
		t.Error("national should have succeeded")
	}
	if _, ok := out.Results[models.RegionWest]; ok {
		t.Error("west failed and must be absent from results")
	}

	if len(out.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(out.Failures))
	}
	if out.Failures[0].Region != models.RegionWest {
		t.Errorf("failed region = %q, want west", out.Failures[0].Region)
	}
}

func TestFetchAllAllRegionsFail(t *testing.T) {
	source := &fakeDataSource{
		errs: map[string]error{
			"S-EGGS-NAT":  errors.New("boom"),
			"S-EGGS-WEST": errors.New("boom"),
		},
	}

	orchestrator := newTestOrchestrator(t, source)
	out := orchestrator.FetchAll(context.Background(), 2005, 2025)

	if len(out.Results) != 0 {
		t.Errorf("results = %d, want 0", len(out.Results))
	}
	if len(out.Failures) != 2 {
		t.Errorf("failures = %d, want 2", len(out.Failures))
	}
}

func TestFetchAllStatsMerged(t *testing.T) {
	source := &fakeDataSource{
		responses: map[string]*models.SeriesResponse{
			"S-EGGS-NAT": successResponse(
				models.RawSeries{
					SeriesID: "S-EGGS-NAT",
					Data: []models.SeriesPoint{
						{Year: "2025", Period: "M06", Value: "3.77"},
						{Year: "2025", Period: "M05", Value: "bad"},
					},
				},
				models.RawSeries{
					SeriesID: "S-STRAY",
					Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "1.00"}},
				},
			),
			"S-EGGS-WEST": successResponse(models.RawSeries{
				SeriesID: "S-EGGS-WEST",
				Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "3.99"}},
			}),
		},
	}

	orchestrator := newTestOrchestrator(t, source)
	out := orchestrator.FetchAll(context.Background(), 2005, 2025)

	if out.Stats.SeriesProcessed != 2 {
		t.Errorf("SeriesProcessed = %d, want 2", out.Stats.SeriesProcessed)
	}
	if out.Stats.SeriesUnmatched != 1 {
		t.Errorf("SeriesUnmatched = %d, want 1", out.Stats.SeriesUnmatched)
	}
	if out.Stats.PointsDropped != 1 {
		t.Errorf("PointsDropped = %d, want 1", out.Stats.PointsDropped)
	}
}
