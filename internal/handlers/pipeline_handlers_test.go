package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"priceindex-platform/internal/models"
	"priceindex-platform/internal/repository"
	"priceindex-platform/internal/services"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

type fakePipeline struct {
	result *models.RunResult
	err    error
	calls  int
}

func (f *fakePipeline) Run(_ context.Context) (*models.RunResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeArchive struct {
	runs []*models.PipelineRun
	err  error
}

func (f *fakeArchive) SaveObservationsBatch(_ context.Context, _ []*models.PriceObservation) error {
	return nil
}

func (f *fakeArchive) RecordRun(_ context.Context, _ *models.PipelineRun) error {
	return nil
}

func (f *fakeArchive) GetRuns(_ context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.runs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.runs) {
		end = len(f.runs)
	}
	return f.runs[offset:end], nil
}

func (f *fakeArchive) HealthCheck(_ context.Context) error {
	return nil
}

func newTestHandler(pipeline PipelineRunner, token string) *PipelineHandler {
	return newTestHandlerWithArchive(pipeline, nil, token)
}

func newTestHandlerWithArchive(pipeline PipelineRunner, archive repository.ArchiveRepository, token string) *PipelineHandler {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry())
	return NewPipelineHandler(pipeline, archive, token, logger, collector)
}

func triggerRun(h *PipelineHandler, authorization string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestTriggerRunAuthorized(t *testing.T) {
	pipeline := &fakePipeline{
		result: &models.RunResult{
			RunID:            "run-1",
			RegionsSucceeded: []models.Region{models.RegionNational},
		},
	}
	handler := newTestHandler(pipeline, "secret")

	recorder := triggerRun(handler, "Bearer secret")

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if pipeline.calls != 1 {
		t.Errorf("pipeline runs = %d, want 1", pipeline.calls)
	}

	var response RunResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("status field = %q, want ok", response.Status)
	}
	if response.Result == nil || response.Result.RunID != "run-1" {
		t.Errorf("result = %+v", response.Result)
	}
}

func TestTriggerRunUnauthorized(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		authorization string
	}{
		{name: "missing header", token: "secret", authorization: ""},
		{name: "wrong token", token: "secret", authorization: "Bearer wrong"},
		{name: "wrong scheme", token: "secret", authorization: "Basic secret"},
		{name: "no token configured", token: "", authorization: "Bearer anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &fakePipeline{}
			handler := newTestHandler(pipeline, tt.token)

			recorder := triggerRun(handler, tt.authorization)

			if recorder.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", recorder.Code)
			}
			if pipeline.calls != 0 {
				t.Error("pipeline must not run for unauthorized requests")
			}
		})
	}
}

func TestTriggerRunConflict(t *testing.T) {
	pipeline := &fakePipeline{err: services.ErrRunInProgress}
	handler := newTestHandler(pipeline, "secret")

	recorder := triggerRun(handler, "Bearer secret")

	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", recorder.Code)
	}
}

func TestTriggerRunFailure(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("3 projection write(s) failed")}
	handler := newTestHandler(pipeline, "secret")

	recorder := triggerRun(handler, "Bearer secret")

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if response.Message != "3 projection write(s) failed" {
		t.Errorf("message = %q", response.Message)
	}
}

func listRuns(h *PipelineHandler, target, authorization string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestListRuns(t *testing.T) {
	archive := &fakeArchive{
		runs: []*models.PipelineRun{
			{RunID: "run-2", Status: "succeeded"},
			{RunID: "run-1", Status: "partial"},
		},
	}
	handler := newTestHandlerWithArchive(&fakePipeline{}, archive, "secret")

	recorder := listRuns(handler, "/api/pipeline/runs", "Bearer secret")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var response struct {
		Runs  []*models.PipelineRun `json:"runs"`
		Count int                   `json:"count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if response.Count != 2 || len(response.Runs) != 2 {
		t.Fatalf("count = %d, runs = %d, want 2", response.Count, len(response.Runs))
	}
	if response.Runs[0].RunID != "run-2" {
		t.Errorf("first run = %q, want newest first", response.Runs[0].RunID)
	}
}

func TestListRunsLimit(t *testing.T) {
	archive := &fakeArchive{
		runs: []*models.PipelineRun{
			{RunID: "run-3"},
			{RunID: "run-2"},
			{RunID: "run-1"},
		},
	}
	handler := newTestHandlerWithArchive(&fakePipeline{}, archive, "secret")

	recorder := listRuns(handler, "/api/pipeline/runs?limit=1&offset=1", "Bearer secret")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var response struct {
		Runs []*models.PipelineRun `json:"runs"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if len(response.Runs) != 1 || response.Runs[0].RunID != "run-2" {
		t.Errorf("runs = %+v, want only run-2", response.Runs)
	}

	if recorder := listRuns(handler, "/api/pipeline/runs?limit=0", "Bearer secret"); recorder.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", recorder.Code)
	}
	if recorder := listRuns(handler, "/api/pipeline/runs?offset=-1", "Bearer secret"); recorder.Code != http.StatusBadRequest {
		t.Errorf("offset=-1 status = %d, want 400", recorder.Code)
	}
}

func TestListRunsWithoutArchive(t *testing.T) {
	handler := newTestHandler(&fakePipeline{}, "secret")

	recorder := listRuns(handler, "/api/pipeline/runs", "Bearer secret")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when the archive is disabled", recorder.Code)
	}
}

func TestListRunsUnauthorized(t *testing.T) {
	archive := &fakeArchive{}
	handler := newTestHandlerWithArchive(&fakePipeline{}, archive, "secret")

	recorder := listRuns(handler, "/api/pipeline/runs", "Bearer wrong")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
}

func TestDocsEndpoints(t *testing.T) {
	handler := newTestHandler(&fakePipeline{}, "secret")

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("docs page status = %d, want 200", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("docs content type = %q", got)
	}
	if !strings.Contains(recorder.Body.String(), "/api/docs/openapi.json") {
		t.Error("docs page does not reference the spec endpoint")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/docs/openapi.json", nil)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("openapi status = %d, want 200", recorder.Code)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document unreadable: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("openapi document has no paths section")
	}
}

func TestHealthCheck(t *testing.T) {
	handler := newTestHandler(&fakePipeline{}, "secret")

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var status map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("response unreadable: %v", err)
	}
	if status["status"] != "healthy" {
		t.Errorf("health status = %q", status["status"])
	}
}
