package promos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PromoDTO is the admin view of a promo code.
type PromoDTO struct {
	ID               uuid.UUID          `json:"id"`
	Code             string             `json:"code"`
	Description      *string            `json:"description,omitempty"`
	DiscountType     enums.DiscountType `json:"discount_type"`
	Value            decimal.Decimal    `json:"value"`
	MaxDiscountCents *int64             `json:"max_discount_cents,omitempty"`
	MinOrderCents    *int64             `json:"min_order_cents,omitempty"`
	ValidFrom        time.Time          `json:"valid_from"`
	ValidTo          time.Time          `json:"valid_to"`
	MaxUses          *int               `json:"max_uses,omitempty"`
	UsedCount        int                `json:"used_count"`
	RemainingUses    *int               `json:"remaining_uses,omitempty"`
	IsActive         bool               `json:"is_active"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PublicPromoDTO is the subset of a promo shown to shoppers.
type PublicPromoDTO struct {
	Code             string             `json:"code"`
	Description      *string            `json:"description,omitempty"`
	DiscountType     enums.DiscountType `json:"discount_type"`
	Value            decimal.Decimal    `json:"value"`
	MaxDiscountCents *int64             `json:"max_discount_cents,omitempty"`
	MinOrderCents    *int64             `json:"min_order_cents,omitempty"`
	ValidTo          time.Time          `json:"valid_to"`
}

// ValidateResult answers whether a code applies to a subtotal and for how much.
type ValidateResult struct {
	IsValid  bool            `json:"is_valid"`
	Discount int64           `json:"discount_cents"`
	Reason   Reason          `json:"reason,omitempty"`
	Promo    *PublicPromoDTO `json:"promo,omitempty"`
}

// PromoListResult is one page of promos.
type PromoListResult struct {
	Promos []PromoDTO `json:"promos"`
	Page   int        `json:"page"`
	Limit  int        `json:"limit"`
	Total  int64      `json:"total"`
}

func NewPromoDTO(p *models.PromoCode) *PromoDTO {
	return &PromoDTO{
		ID:               p.ID,
		Code:             p.Code,
		Description:      p.Description,
		DiscountType:     p.DiscountType,
		Value:            p.Value,
		MaxDiscountCents: p.MaxDiscountCents,
		MinOrderCents:    p.MinOrderCents,
		ValidFrom:        p.ValidFrom,
		ValidTo:          p.ValidTo,
		MaxUses:          p.MaxUses,
		UsedCount:        p.UsedCount,
		RemainingUses:    p.RemainingUses(),
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func newPublicPromoDTO(p *models.PromoCode) *PublicPromoDTO {
	return &PublicPromoDTO{
		Code:             p.Code,
		Description:      p.Description,
		DiscountType:     p.DiscountType,
		Value:            p.Value,
		MaxDiscountCents: p.MaxDiscountCents,
		MinOrderCents:    p.MinOrderCents,
		ValidTo:          p.ValidTo,
	}
}
