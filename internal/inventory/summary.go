package inventory

import (
	"time"

	"github.com/iyhunko/inventory-sync/internal/model"
)

// PreviewSize is the number of products echoed back in a sync summary.
const PreviewSize = 3

// Summary describes a committed inventory.
type Summary struct {
	ProductsCount       int             `json:"productsCount"`
	ExternalImagesCount int             `json:"externalImagesCount"`
	Categories          int             `json:"categories"`
	Products            []model.Product `json:"products"`
	Timestamp           time.Time       `json:"timestamp"`
	BackupCreated       bool            `json:"backupCreated"`
	BackupName          string          `json:"backupName,omitempty"`
}

// Summarize counts products, absolute image URLs and distinct categories.
func Summarize(products []model.Product) Summary {
	categories := make(map[string]struct{})
	external := 0
	for _, p := range products {
		categories[p.Category] = struct{}{}
		if p.HasExternalImage() {
			external++
		}
	}

	preview := products
	if len(preview) > PreviewSize {
		preview = preview[:PreviewSize]
	}

	return Summary{
		ProductsCount:       len(products),
		ExternalImagesCount: external,
		Categories:          len(categories),
		Products:            append([]model.Product{}, preview...),
	}
}

// Stamp sets LastUpdated on every product to ts.
func Stamp(products []model.Product, ts time.Time) {
	for i := range products {
		stamped := ts
		products[i].LastUpdated = &stamped
	}
}
