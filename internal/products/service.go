package products

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*VariantDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Description *string
	Category    string
	Brand       *string
	Images      []string
	Tags        []string
	IsActive    bool
	IsFeatured  bool
	Variants    []VariantInput
}

// VariantInput describes one variant at creation time.
type VariantInput struct {
	Name       string
	SKU        string
	PriceCents int64
	Stock      int
	Attributes map[string]string
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Sort == "" {
		input.Sort = enums.ProductSortNewest
	}
	if !input.Sort.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sort %q", input.Sort))
	}
	f := input.Filters
	if f.PriceMinCents != nil && f.PriceMaxCents != nil && *f.PriceMinCents > *f.PriceMaxCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min_cents cannot exceed price_max_cents")
	}
	input.Page = input.Page.Normalize()

	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{
		Products: make([]ProductDTO, 0, len(rows)),
		Page:     input.Page.Number,
		Limit:    input.Page.Limit,
		Total:    total,
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	return visibleProduct(product, err)
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	return visibleProduct(product, err)
}

func visibleProduct(product *models.Product, err error) (*ProductDTO, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	values, err := s.repo.DistinctCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return nonNil(values), nil
}

func (s *service) Brands(ctx context.Context) ([]string, error) {
	values, err := s.repo.DistinctBrands(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list brands")
	}
	return nonNil(values), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product, err := buildProduct(input)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateProduct(ctx, product); err != nil {
		switch {
		case db.IsUniqueViolation(err, "products_slug_key"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists").
				WithDetails(pkgerrors.Violation{Field: "slug", Reason: "duplicate"})
		case db.IsUniqueViolation(err, "product_variants_sku_key"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "variant sku already exists").
				WithDetails(pkgerrors.Violation{Field: "variants.sku", Reason: "duplicate"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(product), nil
}

func (s *service) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*VariantDTO, error) {
	ok, err := s.repo.AdjustStock(ctx, variantID, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	if !ok {
		variant, findErr := s.repo.FindVariant(ctx, variantID)
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeVariantNotFound, "variant not found").
				WithDetails(pkgerrors.Violation{VariantID: variantID.String(), Reason: "not_found"})
		}
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load variant")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock cannot go below zero").
			WithDetails(pkgerrors.Violation{
				ProductID: variant.ProductID.String(),
				VariantID: variant.ID.String(),
				Reason:    fmt.Sprintf("available %d, delta %d", variant.Stock, delta),
			})
	}
	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	dto := NewVariantDTO(variant)
	return &dto, nil
}

func buildProduct(input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		Category:    category,
		Brand:       input.Brand,
		IsActive:    input.IsActive,
		IsFeatured:  input.IsFeatured,
	}
	if len(input.Images) > 0 {
		product.Images = pq.StringArray(input.Images)
	}
	if len(input.Tags) > 0 {
		product.Tags = pq.StringArray(input.Tags)
	}

	seenSKU := map[string]struct{}{}
	for i, v := range input.Variants {
		sku := strings.ToUpper(strings.TrimSpace(v.SKU))
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variants[%d].sku is required", i))
		}
		if _, dup := seenSKU[sku]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate sku %s", sku))
		}
		seenSKU[sku] = struct{}{}
		if v.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variants[%d].price_cents must be >= 0", i))
		}
		if v.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variants[%d].stock must be >= 0", i))
		}
		variantName := strings.TrimSpace(v.Name)
		if variantName == "" {
			variantName = "Default"
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			ID:         uuid.New(),
			ProductID:  product.ID,
			Position:   i,
			Name:       variantName,
			SKU:        sku,
			PriceCents: v.PriceCents,
			Stock:      v.Stock,
			Attributes: v.Attributes,
		})
	}
	return product, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases value and collapses every non-alphanumeric run into a dash.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
