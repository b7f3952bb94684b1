package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a catalog listing owning an ordered set of purchasable variants.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex"`
	Description *string          `gorm:"column:description"`
	Category    string           `gorm:"column:category;not null"`
	Brand       *string          `gorm:"column:brand"`
	Images      pq.StringArray   `gorm:"column:images;type:text[]"`
	Tags        pq.StringArray   `gorm:"column:tags;type:text[]"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	IsFeatured  bool             `gorm:"column:is_featured;not null"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Variant returns the variant with the given id, if the product owns it.
func (p *Product) Variant(id uuid.UUID) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// ProductVariant is a SKU-level option with its own price and stock.
type ProductVariant struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Position   int               `gorm:"column:position;not null;default:0"`
	Name       string            `gorm:"column:name;not null"`
	SKU        string            `gorm:"column:sku;not null;uniqueIndex"`
	PriceCents int64             `gorm:"column:price_cents;not null"`
	Stock      int               `gorm:"column:stock;not null;default:0"`
	Attributes map[string]string `gorm:"column:attributes;type:jsonb;serializer:json"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
