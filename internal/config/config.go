package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full application configuration, loaded from environment
// variables.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	DataSource DataSourceConfig
	Store      StoreConfig
	Pipeline   PipelineConfig
	Logging    LoggingConfig
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	// UpdateToken gates the manual run trigger endpoint.
	UpdateToken string `env:"UPDATE_TOKEN"`
}

// DatabaseConfig configures the optional observation archive. The archive is
// disabled unless ARCHIVE_ENABLED is set.
type DatabaseConfig struct {
	Enabled         bool          `env:"ARCHIVE_ENABLED" envDefault:"false"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"priceindex"`
	Password        string        `env:"DB_PASSWORD"`
	Database        string        `env:"DB_NAME" envDefault:"priceindex"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
}

// DataSourceConfig configures the upstream statistics API.
type DataSourceConfig struct {
	BaseURL string `env:"BLS_API_URL" envDefault:"https://api.bls.gov/publicAPI/v2/timeseries/data/"`
	APIKey  string `env:"BLS_API_KEY"`
	// Timeout bounds a single upstream call. The pipeline itself defines no
	// deadline; a hung upstream would otherwise block the run indefinitely.
	Timeout time.Duration `env:"BLS_TIMEOUT" envDefault:"2m"`
}

// StoreConfig configures the S3-compatible object store that projections are
// written to.
type StoreConfig struct {
	Endpoint        string `env:"STORE_ENDPOINT"`
	Region          string `env:"STORE_REGION" envDefault:"auto"`
	Bucket          string `env:"STORE_BUCKET"`
	AccessKeyID     string `env:"STORE_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"STORE_SECRET_ACCESS_KEY"`
	// Cache max-age differs by volatility: the catalog changes rarely, price
	// snapshots every run.
	CatalogMaxAge  int  `env:"STORE_CATALOG_MAX_AGE" envDefault:"86400"`
	SnapshotMaxAge int  `env:"STORE_SNAPSHOT_MAX_AGE" envDefault:"3600"`
	WriteItemFiles bool `env:"STORE_WRITE_ITEM_FILES" envDefault:"false"`
}

// PipelineConfig configures the fetch window and catalog source.
type PipelineConfig struct {
	// WindowYears is the number of years of history to request, ending at the
	// current year.
	WindowYears int `env:"PIPELINE_WINDOW_YEARS" envDefault:"20"`
	// StartYear/EndYear override the rolling window when both are set.
	StartYear int `env:"PIPELINE_START_YEAR"`
	EndYear   int `env:"PIPELINE_END_YEAR"`
	// CatalogPath points at a JSON catalog file; empty means the built-in
	// catalog.
	CatalogPath string `env:"CATALOG_PATH"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Store.Bucket == "" {
		return fmt.Errorf("STORE_BUCKET is required")
	}
	if c.Pipeline.WindowYears <= 0 {
		return fmt.Errorf("PIPELINE_WINDOW_YEARS must be positive")
	}
	if (c.Pipeline.StartYear == 0) != (c.Pipeline.EndYear == 0) {
		return fmt.Errorf("PIPELINE_START_YEAR and PIPELINE_END_YEAR must be set together")
	}
	if c.Pipeline.StartYear != 0 && c.Pipeline.StartYear > c.Pipeline.EndYear {
		return fmt.Errorf("PIPELINE_START_YEAR must not exceed PIPELINE_END_YEAR")
	}
	if c.Database.Enabled && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when the archive is enabled")
	}
	return nil
}

// YearWindow resolves the fetch window for a run starting now.
func (c *PipelineConfig) YearWindow(now time.Time) (startYear, endYear int) {
	if c.StartYear != 0 && c.EndYear != 0 {
		return c.StartYear, c.EndYear
	}
	endYear = now.Year()
	startYear = endYear - c.WindowYears
	return startYear, endYear
}
