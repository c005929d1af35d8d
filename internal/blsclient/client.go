// Package blsclient implements the HTTP client for the BLS public
// timeseries API. A request succeeds only when both the transport status is
// 2xx and the application-level status field reports success; failures are
// surfaced to the caller, never retried.
package blsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
)

// Client posts batch series requests to the timeseries endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewClient creates a new DataSource client.
func NewClient(baseURL string, timeout time.Duration, logger *logging.StructuredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchSeries posts one batch request and validates the two-level success
// contract.
func (c *Client) FetchSeries(ctx context.Context, req models.SeriesRequest) (*models.SeriesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "[BLS_FETCH] Batch request completed", logging.Fields{
		"series_count": len(req.SeriesIDs),
		"status_code":  resp.StatusCode,
		"duration_ms":  time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded slice of the body for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected HTTP status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed models.SeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.Status != models.StatusSucceeded {
		return nil, fmt.Errorf("API status %q: %s", parsed.Status, strings.Join(parsed.Message, "; "))
	}

	return &parsed, nil
}
