package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartItemDTO is one cart line as returned to clients.
type CartItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	PriceCents     int64     `json:"price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// CartDTO is the cart snapshot returned by every cart operation.
type CartDTO struct {
	Token         string        `json:"token"`
	Items         []CartItemDTO `json:"items"`
	ItemCount     int           `json:"item_count"`
	SubtotalCents int64         `json:"subtotal_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TotalCents    int64         `json:"total_cents"`
	PromoCode     *string       `json:"promo_code,omitempty"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

func NewCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		Token:         cart.Token,
		Items:         make([]CartItemDTO, 0, len(cart.Items)),
		SubtotalCents: cart.SubtotalCents,
		DiscountCents: cart.DiscountCents,
		TotalCents:    cart.TotalCents,
		PromoCode:     cart.PromoCode,
		ExpiresAt:     cart.ExpiresAt,
	}
	for _, item := range cart.Items {
		dto.ItemCount += item.Quantity
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			SKU:            item.SKU,
			PriceCents:     item.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
		})
	}
	return dto
}
