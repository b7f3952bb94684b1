package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(ctx).First(&order, "order_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

func (r *repository) List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		query = query.Where("customer_email = ?", strings.ToLower(email))
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		UpdateColumns(map[string]any{"payment_status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevenueByDay groups non-cancelled orders created in [from, to) by UTC day.
func (r *repository) RevenueByDay(ctx context.Context, from, to time.Time) ([]DailyRevenue, error) {
	day := "DATE(created_at)"
	if r.db.Dialector.Name() == "postgres" {
		day = "TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	}

	var rows []DailyRevenue
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(day+" AS day, COUNT(*) AS orders, COALESCE(SUM(total_cents), 0) AS revenue_cents, COALESCE(SUM(discount_cents), 0) AS discount_cents").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Where("status <> ?", enums.OrderStatusCancelled).
		Group("day").
		Order("day ASC").
		Scan(&rows).
		Error
	return rows, err
}
