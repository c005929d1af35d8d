package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Projection values are consumed as JSON numbers by downstream readers;
// the default quoted form would break them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// RegionResult is the full derived view for one region, produced fresh every
// run and merged into projections by the composer.
type RegionResult struct {
	Current    map[string]decimal.Decimal `json:"current"`
	Trends     map[string]Trend           `json:"trends"`
	Historical []HistoricalRow            `json:"historical"`
	Categories map[string]CategoryRollup  `json:"categories"`
}

// HistoricalRow aligns the observations of all items in a region onto one
// month. Rows are ordered ascending by month key.
type HistoricalRow struct {
	Month  string                     `json:"month"`
	Values map[string]decimal.Decimal `json:"values"`
}

// CategoryRollup groups current values by the catalog's category grouping.
// A rollup entry exists for every configured category even when no series
// data matched (present definition, absent data).
type CategoryRollup struct {
	Name  string                     `json:"name"`
	Items map[string]decimal.Decimal `json:"items"`
}

// DataRange is the earliest and latest month key observed across a run.
type DataRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Metadata is shared verbatim by every projection written in one run.
type Metadata struct {
	LastUpdated string    `json:"last_updated"`
	RunID       string    `json:"run_id"`
	DataRange   DataRange `json:"data_range"`
}

// NationalProjection is the single detailed national object.
type NationalProjection struct {
	Metadata Metadata     `json:"metadata"`
	Data     RegionResult `json:"data"`
}

// RegionalProjection maps every successfully fetched region to its result.
// Regions that failed to fetch are simply absent.
type RegionalProjection struct {
	Metadata Metadata                `json:"metadata"`
	Regions  map[Region]RegionResult `json:"regions"`
}

// CurrentPricesProjection is the lightweight per-region snapshot view.
type CurrentPricesProjection struct {
	Metadata Metadata                              `json:"metadata"`
	Regions  map[Region]map[string]decimal.Decimal `json:"regions"`
}

// CategoriesProjection presents each category across regions.
type CategoriesProjection struct {
	Metadata   Metadata                `json:"metadata"`
	Categories map[string]CategoryView `json:"categories"`
}

// CategoryView is one category's per-region current values and trends.
type CategoryView struct {
	Name    string                        `json:"name"`
	Regions map[Region]CategoryRegionView `json:"regions"`
}

// CategoryRegionView is the current/trend slice of one category in one region.
type CategoryRegionView struct {
	Current map[string]decimal.Decimal `json:"current"`
	Trends  map[string]Trend           `json:"trends"`
}

// ItemProjection is the optional per-(region, item) object carrying just that
// item's identity and its raw data points.
type ItemProjection struct {
	Metadata Metadata      `json:"metadata"`
	Region   Region        `json:"region"`
	DataKey  string        `json:"data_key"`
	Name     string        `json:"name"`
	Unit     string        `json:"unit"`
	SeriesID string        `json:"series_id"`
	Points   []SeriesPoint `json:"points"`
}

// ProjectionSet is everything one run produces for the sink.
type ProjectionSet struct {
	National      *NationalProjection
	Regional      *RegionalProjection
	CurrentPrices *CurrentPricesProjection
	Categories    *CategoriesProjection
	Items         []ItemProjection
}

// RegionFailure records one region skipped by the orchestrator.
type RegionFailure struct {
	Region  Region `json:"region"`
	Message string `json:"message"`
}

// RunResult is the per-run accounting returned to the invoker and archived
// when the observation archive is enabled.
type RunResult struct {
	RunID            string          `json:"run_id"`
	StartedAt        time.Time       `json:"started_at"`
	Duration         time.Duration   `json:"-"`
	DurationSeconds  float64         `json:"duration_seconds"`
	RegionsSucceeded []Region        `json:"regions_succeeded"`
	RegionsFailed    []RegionFailure `json:"regions_failed,omitempty"`
	SeriesProcessed  int             `json:"series_processed"`
	SeriesUnmatched  int             `json:"series_unmatched"`
	SeriesFailed     int             `json:"series_failed"`
	PointsDropped    int             `json:"points_dropped"`
}

// PriceObservation is one normalized point in the relational archive.
type PriceObservation struct {
	ID        int64           `json:"id" db:"id"`
	Region    string          `json:"region" db:"region"`
	DataKey   string          `json:"data_key" db:"data_key"`
	Month     string          `json:"month" db:"month"`
	Value     decimal.Decimal `json:"value" db:"value"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PipelineRun is the archived bookkeeping row for one run.
type PipelineRun struct {
	RunID            string     `json:"run_id" db:"run_id"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Status           string     `json:"status" db:"status"`
	RegionsSucceeded int        `json:"regions_succeeded" db:"regions_succeeded"`
	RegionsFailed    int        `json:"regions_failed" db:"regions_failed"`
	SeriesProcessed  int        `json:"series_processed" db:"series_processed"`
	PointsDropped    int        `json:"points_dropped" db:"points_dropped"`
	ErrorMessage     *string    `json:"error_message,omitempty" db:"error_message"`
}
