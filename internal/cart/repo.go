package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ErrVersionConflict signals that the cart changed after it was loaded.
var ErrVersionConflict = errors.New("cart version conflict")

// Repository persists carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByToken loads the cart and its lines in position order.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("token = ?", token).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts an empty cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

// SaveVersioned writes the cart totals and replaces its lines, provided the
// stored version still matches cart.Version. On success cart.Version is bumped.
// The caller must run it inside a transaction.
func (r *Repository) SaveVersioned(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		UpdateColumns(map[string]any{
			"promo_code":     cart.PromoCode,
			"subtotal_cents": cart.SubtotalCents,
			"discount_cents": cart.DiscountCents,
			"total_cents":    cart.TotalCents,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}

	if err := r.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(cart.Items) > 0 {
		for i := range cart.Items {
			if cart.Items[i].ID == uuid.Nil {
				cart.Items[i].ID = uuid.New()
			}
			cart.Items[i].CartID = cart.ID
			cart.Items[i].Position = i
		}
		if err := r.db.WithContext(ctx).Create(&cart.Items).Error; err != nil {
			return err
		}
	}
	cart.Version++
	cart.UpdatedAt = now
	return nil
}

// DeleteExpired removes every cart whose retention window elapsed at now,
// lines first. It returns the number of carts removed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Cart{}).Select("id").Where("expires_at <= ?", now)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at <= ?", now).Delete(&models.Cart{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
