package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a guest cart addressed by an opaque token.
type Cart struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token         string     `gorm:"column:token;not null;uniqueIndex"`
	PromoCode     *string    `gorm:"column:promo_code"`
	SubtotalCents int64      `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountCents int64      `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int64      `gorm:"column:total_cents;not null;default:0"`
	Version       int        `gorm:"column:version;not null;default:0"`
	ExpiresAt     time.Time  `gorm:"column:expires_at;not null"`
	Items         []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the cart retention window has elapsed at now.
func (c *Cart) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CartItem is a line in a cart carrying the price, name and SKU captured when added.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID     uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID  uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Position   int       `gorm:"column:position;not null;default:0"`
	Name       string    `gorm:"column:name;not null"`
	SKU        string    `gorm:"column:sku;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotalCents is price times quantity.
func (i CartItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
