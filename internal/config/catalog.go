package config

import (
	"encoding/json"
	"fmt"
	"os"

	"priceindex-platform/internal/models"
)

// LoadCatalog reads the goods catalog from a JSON file, or returns the
// built-in catalog when path is empty. The catalog is parsed once at startup
// and treated as immutable afterwards.
func LoadCatalog(path string) (*models.Catalog, error) {
	if path == "" {
		return models.DefaultCatalog(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(catalog.Categories) == 0 {
		return nil, fmt.Errorf("catalog %s defines no categories", path)
	}

	return &catalog, nil
}
