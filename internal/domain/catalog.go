package domain

import "fmt"

// CatalogEntry is one reference price-list item. Immutable once loaded;
// the slice index is the join key back to the rate.
type CatalogEntry struct {
	Description string
	Rate        float64
}

// Catalog is the ordered reference price list loaded once per matching run.
// Read-only during matching, safe to share across concurrent matcher calls.
type Catalog []CatalogEntry

// NewCatalog builds a catalog from the parallel description/rate arrays
// supplied by the price-list store.
func NewCatalog(descriptions []string, rates []float64) (Catalog, error) {
	if len(descriptions) != len(rates) {
		return nil, fmt.Errorf(
			"descriptions (%d) and rates (%d) length mismatch: %w",
			len(descriptions), len(rates), ErrValidation,
		)
	}
	if len(descriptions) == 0 {
		return nil, ErrEmptyCatalog
	}

	catalog := make(Catalog, len(descriptions))
	for i, d := range descriptions {
		catalog[i] = CatalogEntry{Description: d, Rate: rates[i]}
	}
	return catalog, nil
}

// Descriptions returns catalog descriptions in index order.
func (c Catalog) Descriptions() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.Description
	}
	return out
}
