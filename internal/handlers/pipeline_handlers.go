package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"priceindex-platform/internal/models"
	"priceindex-platform/internal/repository"
	"priceindex-platform/internal/services"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// PipelineRunner runs one aggregation pass. Satisfied by
// services.PipelineService.
type PipelineRunner interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// PipelineHandler exposes the administrative pipeline API.
type PipelineHandler struct {
	pipeline    PipelineRunner
	archive     repository.ArchiveRepository // nil when the archive is disabled
	updateToken string
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewPipelineHandler creates a new pipeline handler. archive may be nil.
func NewPipelineHandler(pipeline PipelineRunner, archive repository.ArchiveRepository, updateToken string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineHandler {
	return &PipelineHandler{
		pipeline:    pipeline,
		archive:     archive,
		updateToken: updateToken,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RunResponse wraps a successful run trigger.
type RunResponse struct {
	Status string            `json:"status"`
	Result *models.RunResult `json:"result"`
}

// TriggerRun handles POST /api/pipeline/run. The endpoint is gated by a
// bearer token; authorization of the credential itself happens upstream of
// this service.
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/pipeline/run").Observe(duration.Seconds())
	}()

	if !h.authorized(r) {
		h.metrics.RecordAPIError("unauthorized", "/api/pipeline/run")
		h.sendError(w, r, "missing or invalid bearer token", http.StatusUnauthorized)
		return
	}

	result, err := h.pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			h.sendError(w, r, err.Error(), http.StatusConflict)
			return
		}

		h.logger.Error(ctx, "[API_RUN_ERROR] Pipeline run failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("run_failed", "/api/pipeline/run")
		h.sendError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/pipeline/run", "POST", "200")
	h.sendJSON(w, RunResponse{Status: "ok", Result: result}, http.StatusOK)
}

// ListRuns handles GET /api/pipeline/runs. Run history lives in the optional
// observation archive; without it the endpoint reports not found.
func (h *PipelineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.authorized(r) {
		h.metrics.RecordAPIError("unauthorized", "/api/pipeline/runs")
		h.sendError(w, r, "missing or invalid bearer token", http.StatusUnauthorized)
		return
	}

	if h.archive == nil {
		h.sendError(w, r, "run history requires the observation archive", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.sendError(w, r, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.sendError(w, r, "offset must be non-negative", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	runs, err := h.archive.GetRuns(ctx, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "[API_RUNS_ERROR] Failed to list runs", logging.Fields{}, err)
		h.metrics.RecordAPIError("list_failed", "/api/pipeline/runs")
		h.sendError(w, r, "failed to list runs", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/pipeline/runs", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PipelineHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// authorized validates the bearer credential in constant time.
func (h *PipelineHandler) authorized(r *http.Request) bool {
	if h.updateToken == "" {
		return false
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.updateToken)) == 1
}

// sendJSON sends a JSON response
func (h *PipelineHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *PipelineHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all pipeline API routes
func (h *PipelineHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/pipeline/run", h.TriggerRun).Methods("POST")
	router.HandleFunc("/api/pipeline/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
