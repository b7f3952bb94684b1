package enums

import "fmt"

// ProductSort names the supported catalog orderings.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortName      ProductSort = "name"
)

var validProductSorts = []ProductSort{
	ProductSortNewest,
	ProductSortPriceAsc,
	ProductSortPriceDesc,
	ProductSortName,
}

// String implements fmt.Stringer.
func (s ProductSort) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductSort.
func (s ProductSort) IsValid() bool {
	for _, candidate := range validProductSorts {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductSort converts raw input into a ProductSort. Empty input yields newest.
func ParseProductSort(value string) (ProductSort, error) {
	if value == "" {
		return ProductSortNewest, nil
	}
	for _, candidate := range validProductSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product sort %q", value)
}
