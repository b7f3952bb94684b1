package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable snapshot of a committed cart. Only status, payment
// status, tracking number and notes change after creation.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex"`
	CartToken       string              `gorm:"column:cart_token;not null"`
	Customer        types.CustomerInfo  `gorm:"column:customer;type:jsonb;serializer:json;not null"`
	CustomerEmail   string              `gorm:"column:customer_email;not null;index"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress  *types.Address      `gorm:"column:billing_address;type:jsonb;serializer:json"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null"`
	PromoCode       *string             `gorm:"column:promo_code"`
	SubtotalCents   int64               `gorm:"column:subtotal_cents;not null"`
	DiscountCents   int64               `gorm:"column:discount_cents;not null"`
	TotalCents      int64               `gorm:"column:total_cents;not null"`
	TrackingNumber  *string             `gorm:"column:tracking_number"`
	Notes           *string             `gorm:"column:notes"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem copies a cart line at commit time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	PriceCents     int64     `gorm:"column:price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
