package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// MustCreateProduct inserts an active product with one variant per price/stock pair.
func MustCreateProduct(t testing.TB, tx *gorm.DB, name string, variants ...models.ProductVariant) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Slug:     fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Category: "apparel",
		IsActive: true,
	}
	for i := range variants {
		if variants[i].ID == uuid.Nil {
			variants[i].ID = uuid.New()
		}
		variants[i].ProductID = product.ID
		variants[i].Position = i
		if variants[i].SKU == "" {
			variants[i].SKU = fmt.Sprintf("SKU-%s", uuid.NewString())
		}
		if variants[i].Name == "" {
			variants[i].Name = fmt.Sprintf("variant %d", i+1)
		}
	}
	product.Variants = variants

	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// Variant builds an unsaved variant for MustCreateProduct.
func Variant(priceCents int64, stock int) models.ProductVariant {
	return models.ProductVariant{PriceCents: priceCents, Stock: stock}
}

// PromoOption customises MustCreatePromo.
type PromoOption func(*models.PromoCode)

func WithMaxUses(max, used int) PromoOption {
	return func(p *models.PromoCode) {
		p.MaxUses = &max
		p.UsedCount = used
	}
}

func WithMinOrder(cents int64) PromoOption {
	return func(p *models.PromoCode) { p.MinOrderCents = &cents }
}

func WithMaxDiscount(cents int64) PromoOption {
	return func(p *models.PromoCode) { p.MaxDiscountCents = &cents }
}

// MustCreatePromo inserts an active promo valid for a day either side of now.
func MustCreatePromo(t testing.TB, tx *gorm.DB, code string, kind enums.DiscountType, value int64, opts ...PromoOption) *models.PromoCode {
	t.Helper()

	now := time.Now().UTC()
	promo := &models.PromoCode{
		ID:           uuid.New(),
		Code:         code,
		DiscountType: kind,
		Value:        decimal.NewFromInt(value),
		ValidFrom:    now.Add(-24 * time.Hour),
		ValidTo:      now.Add(24 * time.Hour),
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(promo)
	}
	if err := tx.Create(promo).Error; err != nil {
		t.Fatalf("create promo: %v", err)
	}
	return promo
}

// OrderOption customises MustCreateOrder.
type OrderOption func(*models.Order)

func WithOrderPromo(code string, discountCents int64) OrderOption {
	return func(o *models.Order) {
		o.PromoCode = &code
		o.DiscountCents = discountCents
		o.TotalCents = o.SubtotalCents - discountCents
	}
}

func WithOrderStatus(status enums.OrderStatus) OrderOption {
	return func(o *models.Order) { o.Status = status }
}

func WithOrderCreatedAt(at time.Time) OrderOption {
	return func(o *models.Order) { o.CreatedAt = at.UTC() }
}

// MustCreateOrder inserts a pending order with a single line worth subtotalCents.
func MustCreateOrder(t testing.TB, tx *gorm.DB, email string, subtotalCents int64, opts ...OrderOption) *models.Order {
	t.Helper()

	id := uuid.New()
	order := &models.Order{
		ID:          id,
		OrderNumber: "ORD-TEST-" + strings.ToUpper(id.String()[:8]),
		CartToken:   uuid.NewString(),
		Customer:    types.CustomerInfo{Email: email, FirstName: "Test", LastName: "Buyer"},
		ShippingAddress: types.Address{
			FullName: "Test Buyer", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		CustomerEmail: email,
		PaymentMethod: enums.PaymentMethodCard,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		SubtotalCents: subtotalCents,
		TotalCents:    subtotalCents,
		Items: []models.OrderItem{{
			ID:             uuid.New(),
			OrderID:        id,
			ProductID:      uuid.New(),
			VariantID:      uuid.New(),
			Name:           "fixture",
			SKU:            "FIXTURE",
			PriceCents:     subtotalCents,
			Quantity:       1,
			LineTotalCents: subtotalCents,
		}},
	}
	for _, opt := range opts {
		opt(order)
	}
	if err := tx.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}
