package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderFilters describe the inputs supported by the staff order list.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Email         string
}

// OrderItemDTO is one committed line.
type OrderItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	PriceCents     int64     `json:"price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// OrderDTO exposes the full order snapshot.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Customer        types.CustomerInfo  `json:"customer"`
	ShippingAddress types.Address       `json:"shipping_address"`
	BillingAddress  *types.Address      `json:"billing_address,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	PromoCode       *string             `json:"promo_code,omitempty"`
	SubtotalCents   int64               `json:"subtotal_cents"`
	DiscountCents   int64               `json:"discount_cents"`
	TotalCents      int64               `json:"total_cents"`
	TrackingNumber  *string             `json:"tracking_number,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TrackingDTO is what a customer sees when tracking an order.
type TrackingDTO struct {
	OrderNumber    string              `json:"order_number"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	TrackingNumber *string             `json:"tracking_number,omitempty"`
	TotalCents     int64               `json:"total_cents"`
	Items          []OrderItemDTO      `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// OrderSummary is the compact row used by the staff list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerEmail string              `json:"customer_email"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCents    int64               `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// DailyRevenue aggregates the orders created on one UTC day.
type DailyRevenue struct {
	Day           string `gorm:"column:day" json:"day"`
	Orders        int64  `gorm:"column:orders" json:"orders"`
	RevenueCents  int64  `gorm:"column:revenue_cents" json:"revenue_cents"`
	DiscountCents int64  `gorm:"column:discount_cents" json:"discount_cents"`
}

func newItemDTOs(items []models.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemDTO{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			SKU:            item.SKU,
			PriceCents:     item.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return out
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	return &OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Customer:        order.Customer,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		PaymentMethod:   order.PaymentMethod,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PromoCode:       order.PromoCode,
		SubtotalCents:   order.SubtotalCents,
		DiscountCents:   order.DiscountCents,
		TotalCents:      order.TotalCents,
		TrackingNumber:  order.TrackingNumber,
		Notes:           order.Notes,
		Items:           newItemDTOs(order.Items),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func newTrackingDTO(order *models.Order) *TrackingDTO {
	return &TrackingDTO{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		TrackingNumber: order.TrackingNumber,
		TotalCents:     order.TotalCents,
		Items:          newItemDTOs(order.Items),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

func newOrderSummary(order *models.Order) OrderSummary {
	summary := OrderSummary{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalCents:    order.TotalCents,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		summary.TotalItems += item.Quantity
	}
	return summary
}
