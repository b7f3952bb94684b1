package types

import (
	"fmt"
	"strings"
)

// Address is a postal address captured on an order. It is persisted as jsonb.
type Address struct {
	FullName   string  `json:"full_name" validate:"required,max=200"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"omitempty,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,len=2"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// Normalize trims every field and upper-cases the country code.
func (a Address) Normalize() Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = trimOptional(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.Phone = trimOptional(a.Phone)
	return a
}

// Validate checks the fields required to ship to the address.
func (a Address) Validate() error {
	switch {
	case a.FullName == "":
		return fmt.Errorf("address: missing full_name")
	case a.Line1 == "":
		return fmt.Errorf("address: missing line1")
	case a.City == "":
		return fmt.Errorf("address: missing city")
	case a.PostalCode == "":
		return fmt.Errorf("address: missing postal_code")
	case len(a.Country) != 2:
		return fmt.Errorf("address: country must be a 2-letter code")
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
