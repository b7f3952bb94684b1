package enums

import "fmt"

// DiscountType selects how a promo value is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage treats the value as percentage points of the subtotal.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed treats the value as an amount in cents.
	DiscountTypeFixed DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
