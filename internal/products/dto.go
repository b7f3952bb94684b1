package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Description   *string      `json:"description,omitempty"`
	Category      string       `json:"category"`
	Brand         *string      `json:"brand,omitempty"`
	Images        []string     `json:"images"`
	Tags          []string     `json:"tags"`
	IsActive      bool         `json:"is_active"`
	IsFeatured    bool         `json:"is_featured"`
	MinPriceCents int64        `json:"min_price_cents"`
	InStock       bool         `json:"in_stock"`
	Variants      []VariantDTO `json:"variants"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// VariantDTO exposes one purchasable option.
type VariantDTO struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	PriceCents int64             `json:"price_cents"`
	Stock      int               `json:"stock"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ProductListResult is one catalog page.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	Total    int64        `json:"total"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Category:    product.Category,
		Brand:       product.Brand,
		Images:      append([]string{}, product.Images...),
		Tags:        append([]string{}, product.Tags...),
		IsActive:    product.IsActive,
		IsFeatured:  product.IsFeatured,
		Variants:    make([]VariantDTO, 0, len(product.Variants)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for i, variant := range product.Variants {
		dto.Variants = append(dto.Variants, NewVariantDTO(&variant))
		if i == 0 || variant.PriceCents < dto.MinPriceCents {
			dto.MinPriceCents = variant.PriceCents
		}
		if variant.Stock > 0 {
			dto.InStock = true
		}
	}
	return dto
}

// NewVariantDTO maps a variant row to its response shape.
func NewVariantDTO(variant *models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:         variant.ID,
		Name:       variant.Name,
		SKU:        variant.SKU,
		PriceCents: variant.PriceCents,
		Stock:      variant.Stock,
		Attributes: variant.Attributes,
	}
}
