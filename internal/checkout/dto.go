package checkout

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Input is what a guest submits to place an order.
type Input struct {
	CartToken       string
	Customer        types.CustomerInfo
	ShippingAddress types.Address
	BillingAddress  *types.Address
	PaymentMethod   enums.PaymentMethod
	PromoCode       *string
}

// Problem is one reason a checkout would be refused.
type Problem struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	pkgerrors.Violation
}

// ValidationResult reports every problem found without mutating anything.
type ValidationResult struct {
	IsValid bool      `json:"is_valid"`
	Errors  []Problem `json:"errors"`
}

// Totals is a price preview for a cart.
type Totals struct {
	SubtotalCents int64   `json:"subtotal_cents"`
	DiscountCents int64   `json:"discount_cents"`
	TotalCents    int64   `json:"total_cents"`
	PromoCode     *string `json:"promo_code,omitempty"`
}

func problemFrom(err error) Problem {
	typed := pkgerrors.As(err)
	if typed == nil {
		return Problem{Code: pkgerrors.CodeInternal, Message: err.Error()}
	}
	problem := Problem{Code: typed.Code(), Message: typed.Message()}
	if violation, ok := typed.Details().(pkgerrors.Violation); ok {
		problem.Violation = violation
	}
	if problem.Reason == "" {
		problem.Reason = typed.Message()
	}
	return problem
}
