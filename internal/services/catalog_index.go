package services

import (
	"fmt"

	"priceindex-platform/internal/models"
)

// IndexEntry resolves a returned series identifier to its owning catalog
// item and category.
type IndexEntry struct {
	Item     *models.CatalogItem
	Category *models.Category
}

// CatalogIndex holds the read-only lookup structures derived from the
// catalog: per-region ordered series-ID lists for request building, and the
// reverse map from (region, series ID) back to the owning item. Built once
// per process; safe for concurrent reads.
type CatalogIndex struct {
	catalog      *models.Catalog
	regionSeries map[models.Region][]string
	reverse      map[models.Region]map[string]IndexEntry
}

// BuildCatalogIndex constructs the index. Series-ID ordering follows catalog
// iteration order (categories, then items), so the same catalog always
// yields the same request payloads. A duplicate series ID within one region
// violates the catalog invariant and is a fatal configuration error: it
// cannot be resolved to a single owner.
func BuildCatalogIndex(catalog *models.Catalog) (*CatalogIndex, error) {
	index := &CatalogIndex{
		catalog:      catalog,
		regionSeries: make(map[models.Region][]string),
		reverse:      make(map[models.Region]map[string]IndexEntry),
	}

	for _, region := range models.AllRegions() {
		index.reverse[region] = make(map[string]IndexEntry)
	}

	for ci := range catalog.Categories {
		category := &catalog.Categories[ci]
		for ii := range category.Items {
			item := &category.Items[ii]
			for _, region := range models.AllRegions() {
				seriesID, ok := item.SeriesIDs[region]
				if !ok || seriesID == "" {
					// Items without a series ID for this region are simply
					// not requested there.
					continue
				}

				if existing, dup := index.reverse[region][seriesID]; dup {
					return nil, &models.ConfigurationError{
						Message: fmt.Sprintf(
							"duplicate series ID %s in region %s: owned by both %s and %s",
							seriesID, region, existing.Item.DataKey, item.DataKey,
						),
					}
				}

				index.reverse[region][seriesID] = IndexEntry{Item: item, Category: category}
				index.regionSeries[region] = append(index.regionSeries[region], seriesID)
			}
		}
	}

	return index, nil
}

// Catalog returns the immutable catalog the index was built from.
func (ix *CatalogIndex) Catalog() *models.Catalog {
	return ix.catalog
}

// SeriesIDs returns the ordered series-ID request list for a region.
func (ix *CatalogIndex) SeriesIDs(region models.Region) []string {
	return ix.regionSeries[region]
}

// Resolve maps a returned series identifier to its catalog owner.
func (ix *CatalogIndex) Resolve(region models.Region, seriesID string) (IndexEntry, bool) {
	entry, ok := ix.reverse[region][seriesID]
	return entry, ok
}
