package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	variantExistsClause  = "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id"
	minVariantPriceQuery = "(SELECT MIN(v.price_cents) FROM product_variants v WHERE v.product_id = products.id)"
)

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID loads the product with its variants in position order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := preloadVariants(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads the product addressed by its unique slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := preloadVariants(r.db.WithContext(ctx)).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads several products at once, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := preloadVariants(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// FindVariant loads a single variant row.
func (r *Repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// List returns one page of products matching the filters plus the total match count.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, int64, error) {
	var total int64
	if err := r.filtered(ctx, input).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := input.Page.Normalize()
	var rows []models.Product
	err := preloadVariants(orderBySort(r.filtered(ctx, input), input.Sort)).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) filtered(ctx context.Context, input ListProductsInput) *gorm.DB {
	qb := r.db.WithContext(ctx).Model(&models.Product{})

	if !input.IncludeInactive {
		qb = qb.Where("products.is_active = ?", true)
	}
	filter := input.Filters
	if filter.Category != nil {
		qb = qb.Where("products.category = ?", *filter.Category)
	}
	if filter.Brand != nil {
		qb = qb.Where("products.brand = ?", *filter.Brand)
	}
	if filter.Featured != nil {
		qb = qb.Where("products.is_featured = ?", *filter.Featured)
	}
	if filter.PriceMinCents != nil {
		qb = qb.Where(variantExistsClause+" AND v.price_cents >= ?)", *filter.PriceMinCents)
	}
	if filter.PriceMaxCents != nil {
		qb = qb.Where(variantExistsClause+" AND v.price_cents <= ?)", *filter.PriceMaxCents)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			qb = qb.Where(variantExistsClause + " AND v.stock > 0)")
		} else {
			qb = qb.Where("NOT " + variantExistsClause + " AND v.stock > 0)")
		}
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(products.name) LIKE ? OR LOWER(COALESCE(products.description, '')) LIKE ?)", pattern, pattern)
	}
	return qb
}

func orderBySort(qb *gorm.DB, sort enums.ProductSort) *gorm.DB {
	switch sort {
	case enums.ProductSortPriceAsc:
		return qb.Order(minVariantPriceQuery + " ASC").Order("products.id ASC")
	case enums.ProductSortPriceDesc:
		return qb.Order(minVariantPriceQuery + " DESC").Order("products.id ASC")
	case enums.ProductSortName:
		return qb.Order("products.name ASC").Order("products.id ASC")
	default:
		return qb.Order("products.created_at DESC").Order("products.id DESC")
	}
}

// DistinctCategories lists the categories used by active products.
func (r *Repository) DistinctCategories(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Distinct().
		Order("category ASC").
		Pluck("category", &values).
		Error
	return values, err
}

// DistinctBrands lists the non-empty brands used by active products.
func (r *Repository) DistinctBrands(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ? AND brand IS NOT NULL AND brand <> ''", true).
		Distinct().
		Order("brand ASC").
		Pluck("brand", &values).
		Error
	return values, err
}

// CreateProduct inserts the product and its variants in one transaction.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(product).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustStock applies delta to the variant stock unless the result would go negative.
// It reports false when the guard rejected the update or the variant is missing.
func (r *Repository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock + ? >= 0", variantID, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementStock removes qty units, succeeding only while stock covers them.
func (r *Repository) DecrementStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
