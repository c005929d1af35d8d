package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"priceindex-platform/internal/models"
	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// ObjectStore is the key/value object store projections are written to.
// Writes fully replace prior content at the key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
}

// Store keys are a contract with downstream readers and must stay stable.
const (
	KeyCatalog       = "config.json"
	KeyNational      = "national/latest.json"
	KeyRegional      = "regional/latest.json"
	KeyCurrentPrices = "current_prices.json"
	KeyCategories    = "categories/latest.json"
)

const contentTypeJSON = "application/json"

// SinkConfig carries the cache directives for sink writes. The catalog
// changes rarely and gets a long max-age; snapshots are refreshed every run.
type SinkConfig struct {
	CatalogMaxAge  int
	SnapshotMaxAge int
	WriteItemFiles bool
}

// StoreSink writes the named projections of one run to the object store.
type StoreSink struct {
	store   ObjectStore
	cfg     SinkConfig
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStoreSink creates a new persistence sink.
func NewStoreSink(store ObjectStore, cfg SinkConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StoreSink {
	return &StoreSink{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// WriteProjections serializes and writes every projection of the set, plus
// the catalog passthrough. Writes are independent: a failure on one key does
// not prevent attempting the others, but any failure makes the run fail
// after all keys were attempted. Nothing written earlier is rolled back;
// readers may observe a mix of old and new projections after a partial
// failure, which the store model cannot avoid.
func (s *StoreSink) WriteProjections(ctx context.Context, catalog *models.Catalog, set *models.ProjectionSet) error {
	var failures []error

	write := func(key string, value interface{}, maxAge int) {
		if err := s.writeJSON(ctx, key, value, maxAge); err != nil {
			failures = append(failures, &models.PersistenceError{Key: key, Err: err})
		}
	}

	write(KeyCatalog, catalog, s.cfg.CatalogMaxAge)
	if set.National != nil {
		write(KeyNational, set.National, s.cfg.SnapshotMaxAge)
	}
	write(KeyRegional, set.Regional, s.cfg.SnapshotMaxAge)
	write(KeyCurrentPrices, set.CurrentPrices, s.cfg.SnapshotMaxAge)
	write(KeyCategories, set.Categories, s.cfg.SnapshotMaxAge)

	if s.cfg.WriteItemFiles {
		for i := range set.Items {
			item := &set.Items[i]
			key := fmt.Sprintf("%s/%s.json", item.Region, item.DataKey)
			write(key, item, s.cfg.SnapshotMaxAge)
		}
	}

	if len(failures) > 0 {
		s.logger.Error(ctx, "[SINK_PARTIAL_FAILURE] Some projection writes failed", logging.Fields{
			"failed_count": len(failures),
		}, errors.Join(failures...))
		return fmt.Errorf("%d projection write(s) failed: %w", len(failures), errors.Join(failures...))
	}

	return nil
}

func (s *StoreSink) writeJSON(ctx context.Context, key string, value interface{}, maxAge int) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}

	cacheControl := fmt.Sprintf("public, max-age=%d", maxAge)

	start := time.Now()
	err = s.store.Put(ctx, key, body, contentTypeJSON, cacheControl)
	s.metrics.StoreWriteDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.RecordStoreWriteError(key)
		s.logger.Error(ctx, "[SINK_WRITE_ERROR] Projection write failed", logging.Fields{
			"key": key,
		}, err)
		return err
	}

	s.logger.Debug(ctx, "[SINK_WRITE] Projection written", logging.Fields{
		"key":   key,
		"bytes": len(body),
	})

	return nil
}
