package promos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrPromoExhausted is returned when the conditional usage increment matched no row.
var ErrPromoExhausted = errors.New("promo code not redeemable")

// UsageStat summarises how a code has been redeemed.
type UsageStat struct {
	PromoID       uuid.UUID `gorm:"column:id" json:"promo_id"`
	Code          string    `gorm:"column:code" json:"code"`
	IsActive      bool      `gorm:"column:is_active" json:"is_active"`
	UsedCount     int       `gorm:"column:used_count" json:"used_count"`
	MaxUses       *int      `gorm:"column:max_uses" json:"max_uses,omitempty"`
	OrderCount    int64     `gorm:"column:order_count" json:"order_count"`
	DiscountCents int64     `gorm:"column:discount_cents" json:"discount_cents"`
}

// Repository persists promo codes.
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

// FindByCode loads a promo by its stored upper-case code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindByID loads a promo by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// Create inserts a new promo.
func (r *Repository) Create(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

// UpdateDefinition writes the admin editable columns. used_count is left to IncrementUsage.
func (r *Repository) UpdateDefinition(ctx context.Context, promo *models.PromoCode) error {
	promo.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(promo).
		Select("description", "value", "max_discount_cents", "min_order_cents",
			"valid_from", "valid_to", "max_uses", "is_active", "updated_at").
		Updates(promo).
		Error
}

// Deactivate switches a promo off. It reports false when no row matched.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementUsage consumes one use of the promo when it is still redeemable at now.
// The check and the increment are one statement so concurrent redemptions
// cannot push used_count past max_uses.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_to >= ?", now, now).
		Where("max_uses IS NULL OR used_count < max_uses").
		UpdateColumns(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPromoExhausted
	}
	return nil
}

// List returns a page of promos, newest first, and the total count.
func (r *Repository) List(ctx context.Context, page pagination.Page, activeOnly bool) ([]models.PromoCode, int64, error) {
	scoped := func() *gorm.DB {
		qb := r.db.WithContext(ctx).Model(&models.PromoCode{})
		if activeOnly {
			qb = qb.Where("is_active = ?", true)
		}
		return qb
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	var rows []models.PromoCode
	err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UsageStats reports redemptions per code from the orders that used it.
// Cancelled orders are excluded from the order and discount sums.
func (r *Repository) UsageStats(ctx context.Context) ([]UsageStat, error) {
	var stats []UsageStat
	err := r.db.WithContext(ctx).
		Table("promo_codes AS p").
		Select(`p.id, p.code, p.is_active, p.used_count, p.max_uses,
			COUNT(o.id) AS order_count,
			COALESCE(SUM(o.discount_cents), 0) AS discount_cents`).
		Joins("LEFT JOIN orders o ON o.promo_code = p.code AND o.status <> ?", enums.OrderStatusCancelled).
		Group("p.id, p.code, p.is_active, p.used_count, p.max_uses").
		Order("p.code ASC").
		Scan(&stats).
		Error
	return stats, err
}
