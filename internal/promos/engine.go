package promos

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Reason names the rule that made a promo unusable.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonExhausted    Reason = "exhausted"
	ReasonBelowMinimum Reason = "below_minimum"
)

var hundred = decimal.NewFromInt(100)

// Evaluation is the outcome of checking a promo against a subtotal.
type Evaluation struct {
	Valid    bool
	Reason   Reason
	Discount int64
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether the promo is active, inside its window and not exhausted at now.
func IsValid(promo *models.PromoCode, now time.Time) bool {
	return availability(promo, now) == ReasonNone
}

// CalculateDiscount returns the discount in cents the promo grants on subtotal.
// The result is always within [0, subtotal].
func CalculateDiscount(promo *models.PromoCode, subtotal int64, now time.Time) int64 {
	return Evaluate(promo, subtotal, now).Discount
}

// Evaluate applies every promo rule in order and reports the first one that fails.
func Evaluate(promo *models.PromoCode, subtotal int64, now time.Time) Evaluation {
	if reason := availability(promo, now); reason != ReasonNone {
		return Evaluation{Reason: reason}
	}
	if promo.MinOrderCents != nil && subtotal < *promo.MinOrderCents {
		return Evaluation{Reason: ReasonBelowMinimum}
	}
	if subtotal <= 0 {
		return Evaluation{Valid: true}
	}

	var raw int64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		raw = decimal.NewFromInt(subtotal).Mul(promo.Value).Div(hundred).Round(0).IntPart()
	default:
		raw = promo.Value.Round(0).IntPart()
	}
	if promo.MaxDiscountCents != nil && raw > *promo.MaxDiscountCents {
		raw = *promo.MaxDiscountCents
	}
	if raw > subtotal {
		raw = subtotal
	}
	if raw < 0 {
		raw = 0
	}
	return Evaluation{Valid: true, Discount: raw}
}

func availability(promo *models.PromoCode, now time.Time) Reason {
	switch {
	case promo == nil:
		return ReasonNotFound
	case !promo.IsActive:
		return ReasonInactive
	case now.Before(promo.ValidFrom):
		return ReasonNotStarted
	case now.After(promo.ValidTo):
		return ReasonExpired
	case promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses:
		return ReasonExhausted
	}
	return ReasonNone
}
