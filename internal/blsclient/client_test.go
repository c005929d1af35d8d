package blsclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func TestFetchSeriesSuccess(t *testing.T) {
	var gotBody models.SeriesRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("request body unreadable: %v", err)
		}

		resp := models.SeriesResponse{Status: models.StatusSucceeded}
		resp.Results.Series = []models.RawSeries{
			{
				SeriesID: "APU0000708111",
				Data:     []models.SeriesPoint{{Year: "2025", Period: "M06", Value: "3.77"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger())

	resp, err := client.FetchSeries(context.Background(), models.SeriesRequest{
		SeriesIDs:       []string{"APU0000708111"},
		StartYear:       "2005",
		EndYear:         "2025",
		RegistrationKey: "key-123",
		Calculations:    true,
	})
	if err != nil {
		t.Fatalf("FetchSeries failed: %v", err)
	}

	if len(resp.Results.Series) != 1 {
		t.Fatalf("series = %d, want 1", len(resp.Results.Series))
	}
	if resp.Results.Series[0].SeriesID != "APU0000708111" {
		t.Errorf("series ID = %q", resp.Results.Series[0].SeriesID)
	}

	// Wire field names are part of the provider contract.
	if gotBody.RegistrationKey != "key-123" {
		t.Errorf("registration key = %q, want key-123", gotBody.RegistrationKey)
	}
	if gotBody.StartYear != "2005" || gotBody.EndYear != "2025" {
		t.Errorf("year window = %s..%s", gotBody.StartYear, gotBody.EndYear)
	}
	if !gotBody.Calculations {
		t.Error("calculations flag lost in transit")
	}
}

func TestFetchSeriesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger())

	_, err := client.FetchSeries(context.Background(), models.SeriesRequest{SeriesIDs: []string{"X"}})
	if err == nil {
		t.Fatal("expected error on non-2xx status")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should carry the status code, got: %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error should carry a body snippet, got: %v", err)
	}
}

// TestFetchSeriesLogicalFailure covers the second level of the success
// contract: HTTP 200 with a failed application status is still an error.
func TestFetchSeriesLogicalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := models.SeriesResponse{
			Status:  "REQUEST_NOT_PROCESSED",
			Message: []string{"daily threshold exceeded"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger())

	_, err := client.FetchSeries(context.Background(), models.SeriesRequest{SeriesIDs: []string{"X"}})
	if err == nil {
		t.Fatal("expected error on failed application status")
	}
	if !strings.Contains(err.Error(), "REQUEST_NOT_PROCESSED") {
		t.Errorf("error should carry the API status, got: %v", err)
	}
	if !strings.Contains(err.Error(), "daily threshold exceeded") {
		t.Errorf("error should carry the API messages, got: %v", err)
	}
}

func TestFetchSeriesMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger())

	_, err := client.FetchSeries(context.Background(), models.SeriesRequest{SeriesIDs: []string{"X"}})
	if err == nil {
		t.Fatal("expected error on undecodable response")
	}
}

func TestFetchSeriesContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSeries(ctx, models.SeriesRequest{SeriesIDs: []string{"X"}})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
