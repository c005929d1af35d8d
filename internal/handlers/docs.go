package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Price Index Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Price Index Platform API",
			"description": "Administrative API for the price-index aggregation pipeline: fetches economic time series per region, derives current/trend/historical/category projections, and persists them to object storage",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Price Index Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/pipeline/run": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Trigger a pipeline run",
					"description": "Runs the aggregation pipeline immediately. Requires a bearer token. Rejected with 409 while another run is in progress.",
					"security": []map[string]interface{}{
						{"bearerAuth": []string{}},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Run completed",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"$ref": "#/components/schemas/RunResponse"},
								},
							},
						},
						"401": map[string]interface{}{
							"description": "Missing or invalid bearer token",
						},
						"409": map[string]interface{}{
							"description": "A run is already in progress",
						},
						"500": map[string]interface{}{
							"description": "Run failed; the response message carries the underlying error",
						},
					},
				},
			},
			"/api/pipeline/runs": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List recent pipeline runs",
					"description": "Returns archived run bookkeeping, newest first. Available only when the observation archive is enabled.",
					"security": []map[string]interface{}{
						{"bearerAuth": []string{}},
					},
					"parameters": []map[string]interface{}{
						{"name": "limit", "in": "query", "schema": map[string]interface{}{"type": "integer", "default": 20}},
						{"name": "offset", "in": "query", "schema": map[string]interface{}{"type": "integer", "default": 0}},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Recent runs",
						},
						"401": map[string]interface{}{
							"description": "Missing or invalid bearer token",
						},
						"404": map[string]interface{}{
							"description": "Observation archive disabled",
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Service is healthy",
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Prometheus metrics",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Metrics in Prometheus exposition format",
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{
					"type":   "http",
					"scheme": "bearer",
				},
			},
			"schemas": map[string]interface{}{
				"RunResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"status": map[string]string{"type": "string"},
						"result": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"run_id":            map[string]string{"type": "string", "format": "uuid"},
								"started_at":        map[string]string{"type": "string", "format": "date-time"},
								"duration_seconds":  map[string]string{"type": "number"},
								"regions_succeeded": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
								"regions_failed":    map[string]interface{}{"type": "array", "items": map[string]string{"type": "object"}},
								"series_processed":  map[string]string{"type": "integer"},
								"series_unmatched":  map[string]string{"type": "integer"},
								"series_failed":     map[string]string{"type": "integer"},
								"points_dropped":    map[string]string{"type": "integer"},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
