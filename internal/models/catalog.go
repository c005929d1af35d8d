package models

// Region identifies a geographic partition of the tracked goods catalog.
// The set is closed: adding a region requires series IDs for every item
// that should be covered there.
type Region string

const (
	RegionNational  Region = "national"
	RegionNortheast Region = "northeast"
	RegionMidwest   Region = "midwest"
	RegionSouth     Region = "south"
	RegionWest      Region = "west"
)

// AllRegions returns the fixed region set in processing order.
// The national series is always fetched first.
func AllRegions() []Region {
	return []Region{RegionNational, RegionNortheast, RegionMidwest, RegionSouth, RegionWest}
}

// CatalogItem describes one tracked good and its provider-assigned series
// identifier per region. Items without a series ID for a region are simply
// not requested for that region.
type CatalogItem struct {
	DataKey   string            `json:"data_key"`
	Name      string            `json:"name"`
	Unit      string            `json:"unit"`
	SeriesIDs map[Region]string `json:"series_ids"`
}

// Category groups catalog items. Every item belongs to exactly one category.
type Category struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Items []CatalogItem `json:"items"`
}

// Catalog is the static, immutable set of tracked goods. It is loaded once
// per process and never mutated; category and item slice order is the
// canonical iteration order for deterministic request building.
type Catalog struct {
	Categories []Category `json:"categories"`
}

// DefaultCatalog returns the built-in catalog of BLS average price series.
// Regional series IDs follow the BLS area prefix convention
// (0000 national, 0100 northeast, 0200 midwest, 0300 south, 0400 west).
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories: []Category{
			{
				ID:   "dairy_eggs",
				Name: "Dairy & Eggs",
				Items: []CatalogItem{
					{
						DataKey: "eggs",
						Name:    "Eggs, Grade A, Large",
						Unit:    "per dozen",
						SeriesIDs: map[Region]string{
							RegionNational:  "APU0000708111",
							RegionNortheast: "APU0100708111",
							RegionMidwest:   "APU0200708111",
							RegionSouth:     "APU0300708111",
							RegionWest:      "APU0400708111",
						},
					},
					{
						DataKey: "milk",
						Name:    "Milk, Fresh, Whole",
						Unit:    "per gallon",
						SeriesIDs: map[Region]string{
							RegionNational:  "APU0000709112",
							RegionNortheast: "APU0100709112",
							RegionMidwest:   "APU0200709112",
							RegionSouth:     "APU0300709112",
							RegionWest:      "APU0400709112",
						},
					},
				},
			},
			{
				ID:   "bakery",
				Name: "Bakery",
				Items: []CatalogItem{
					{
						DataKey: "bread",
						Name:    "Bread, White, Pan",
						Unit:    "per lb",
						SeriesIDs: map[Region]string{
							RegionNational:  "APU0000702111",
							RegionNortheast: "APU0100702111",
							RegionMidwest:   "APU0200702111",
							RegionSouth:     "APU0300702111",
							RegionWest:      "APU0400702111",
						},
					},
				},
			},
			{
				ID:   "energy",
				Name: "Energy",
				Items: []CatalogItem{
					{
						DataKey: "gas",
						Name:    "Gasoline, Unleaded Regular",
						Unit:    "per gallon",
						SeriesIDs: map[Region]string{
							RegionNational:  "APU000074714",
							RegionNortheast: "APU010074714",
							RegionMidwest:   "APU020074714",
							RegionSouth:     "APU030074714",
							RegionWest:      "APU040074714",
						},
					},
					{
						// National-only series; excluded from regional requests.
						DataKey: "electricity",
						Name:    "Electricity",
						Unit:    "per kWh",
						SeriesIDs: map[Region]string{
							RegionNational: "APU000072610",
						},
					},
				},
			},
		},
	}
}
