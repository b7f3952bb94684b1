package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) (bool, error)
	RevenueByDay(ctx context.Context, from, to time.Time) ([]DailyRevenue, error)
}

type listOrdersParams struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Email         string
	Limit         int
	Cursor        *pagination.Cursor
}
