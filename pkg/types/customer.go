package types

import (
	"fmt"
	"net/mail"
	"strings"
)

// CustomerInfo identifies the guest who placed an order.
type CustomerInfo struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// Normalize trims names and lower-cases the email.
func (c CustomerInfo) Normalize() CustomerInfo {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = trimOptional(c.Phone)
	return c
}

func (c CustomerInfo) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("customer: missing email")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("customer: invalid email")
	}
	if c.FirstName == "" || c.LastName == "" {
		return fmt.Errorf("customer: missing name")
	}
	return nil
}
