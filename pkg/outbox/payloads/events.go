package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once a checkout commits.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerEmail string              `json:"customer_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PromoCode     *string             `json:"promo_code,omitempty"`
	SubtotalCents int64               `json:"subtotal_cents"`
	DiscountCents int64               `json:"discount_cents"`
	TotalCents    int64               `json:"total_cents"`
	ItemCount     int                 `json:"item_count"`
}

// OrderStatusChangedEvent records a fulfilment status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// OrderPaymentStatusChangedEvent records a payment status transition.
type OrderPaymentStatusChangedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	From        enums.PaymentStatus `json:"from"`
	To          enums.PaymentStatus `json:"to"`
}

// PromoExhaustedEvent fires when a redemption consumes the last use of a code.
type PromoExhaustedEvent struct {
	PromoID     uuid.UUID `json:"promo_id"`
	Code        string    `json:"code"`
	MaxUses     int       `json:"max_uses"`
	ExhaustedAt time.Time `json:"exhausted_at"`
}
