package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PromoCode is a discount rule redeemable against a cart subtotal.
// Value holds percentage points for percentage promos and cents for fixed ones.
type PromoCode struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string             `gorm:"column:code;not null;uniqueIndex"`
	Description      *string            `gorm:"column:description"`
	DiscountType     enums.DiscountType `gorm:"column:discount_type;not null"`
	Value            decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscountCents *int64             `gorm:"column:max_discount_cents"`
	MinOrderCents    *int64             `gorm:"column:min_order_cents"`
	ValidFrom        time.Time          `gorm:"column:valid_from;not null"`
	ValidTo          time.Time          `gorm:"column:valid_to;not null"`
	MaxUses          *int               `gorm:"column:max_uses"`
	UsedCount        int                `gorm:"column:used_count;not null;default:0"`
	IsActive         bool               `gorm:"column:is_active;not null"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingUses returns nil when the promo is uncapped.
func (p *PromoCode) RemainingUses() *int {
	if p.MaxUses == nil {
		return nil
	}
	remaining := *p.MaxUses - p.UsedCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
