package services

// CatalogEntry is one row of the product catalog.
type CatalogEntry struct {
	ProductCode   string `json:"productCode"`
	Description   string `json:"description"`
	Comments      string `json:"comments,omitempty"`
	OrderingHints string `json:"orderingHints,omitempty"`
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	Section       string `json:"section"`
	SheetName     string `json:"sheetName,omitempty"`
	RowIndex      int    `json:"rowIndex,omitempty"`
}

// Catalog resolves product codes.
type Catalog interface {
	Lookup(productCode string) (CatalogEntry, bool)
}

// MapCatalog is an in-memory Catalog keyed by product code.
type MapCatalog map[string]CatalogEntry

// NewMapCatalog indexes entries by product code. Later duplicates win.
func NewMapCatalog(entries []CatalogEntry) MapCatalog {
	m := make(MapCatalog, len(entries))
	for _, e := range entries {
		m[e.ProductCode] = e
	}
	return m
}

func (m MapCatalog) Lookup(code string) (CatalogEntry, bool) {
	e, ok := m[code]
	return e, ok
}

// EnrichItems fills description, category, subcategory, vendor and section
// from the catalog. Items missing from the catalog keep their rule defaults;
// nothing is dropped or reordered. Manual-override items are left untouched.
func EnrichItems(items []BOQItem, cat Catalog) []BOQItem {
	if cat == nil {
		return items
	}
	out := make([]BOQItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.ManualOverride {
			continue
		}
		e, ok := cat.Lookup(it.ProductCode)
		if !ok {
			continue
		}
		if e.Description != "" {
			out[i].Description = e.Description
		}
		if e.Category != "" {
			out[i].Category = e.Category
		}
		if e.Subcategory != "" {
			out[i].Subcategory = e.Subcategory
		}
		if e.Section != "" {
			out[i].Section = e.Section
		}
		out[i].Vendor = e.Vendor
	}
	return out
}
