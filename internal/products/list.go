package products

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category      *string `json:"category,omitempty"`
	Brand         *string `json:"brand,omitempty"`
	Query         string  `json:"q,omitempty"`
	PriceMinCents *int64  `json:"price_min_cents,omitempty"`
	PriceMaxCents *int64  `json:"price_max_cents,omitempty"`
	InStock       *bool   `json:"in_stock,omitempty"`
	Featured      *bool   `json:"featured,omitempty"`
}

// ListProductsInput captures the inputs needed to filter, sort, and page the catalog.
type ListProductsInput struct {
	Filters ProductListFilters
	Sort    enums.ProductSort
	Page    pagination.Page
	// IncludeInactive is only honoured on admin paths.
	IncludeInactive bool
}
