package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const orderNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the post-checkout order lifecycle.
type Service interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	SetStatus(ctx context.Context, input SetStatusInput) (*OrderDTO, error)
	SetPaymentStatus(ctx context.Context, input SetPaymentStatusInput) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	GetByNumber(ctx context.Context, number string) (*OrderDTO, error)
	Track(ctx context.Context, number, email string) (*TrackingDTO, error)
	List(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error)
	RevenueByDay(ctx context.Context, from, to time.Time) ([]DailyRevenue, error)
}

// SetStatusInput changes the fulfilment status and optionally attaches tracking details.
type SetStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
	Notes          *string
	Actor          *outbox.ActorRef
}

// SetPaymentStatusInput changes the payment status.
type SetPaymentStatusInput struct {
	OrderID       uuid.UUID
	PaymentStatus enums.PaymentStatus
	Actor         *outbox.ActorRef
}

// Options configures the order service.
type Options struct {
	// StrictTransitions rejects status changes outside the forward-only graph.
	StrictTransitions bool
	NumberGenerator   func(now time.Time) (string, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	strict    bool
	newNumber func(now time.Time) (string, error)
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if opts.NumberGenerator == nil {
		opts.NumberGenerator = NewOrderNumber
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		strict:    opts.StrictTransitions,
		newNumber: opts.NumberGenerator,
	}, nil
}

// CreateInTx inserts the order inside tx, assigning a fresh order number. A
// colliding number is retried from a savepoint so tx stays usable.
func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	repo := s.repo.WithTx(tx)
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := s.newNumber(time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number
		err = tx.Transaction(func(nested *gorm.DB) error {
			return repo.WithTx(nested).Create(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "orders_order_number_key") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		lastErr = err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "order number collision")
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}
	tracking := trimOptional(input.TrackingNumber)
	notes := trimOptional(input.Notes)

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		from := order.Status
		if s.strict && !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot move from %s to %s", from, input.Status)).
				WithDetails(pkgerrors.Violation{Field: "status", Reason: fmt.Sprintf("%s -> %s not allowed", from, input.Status)})
		}

		changes := map[string]any{"status": input.Status}
		if tracking != nil {
			changes["tracking_number"] = *tracking
		}
		if notes != nil {
			changes["notes"] = *notes
		}
		ok, err := repo.UpdateStatus(ctx, order.ID, from, changes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}

		if from != input.Status || tracking != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         input.Actor,
				Data: payloads.OrderStatusChangedEvent{
					OrderID:        order.ID,
					OrderNumber:    order.OrderNumber,
					From:           from,
					To:             input.Status,
					TrackingNumber: tracking,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
			}
		}

		updated, err = loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(updated), nil
}

func (s *service) SetPaymentStatus(ctx context.Context, input SetPaymentStatusInput) (*OrderDTO, error) {
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", input.PaymentStatus))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		from := order.PaymentStatus
		if from == input.PaymentStatus {
			updated = order
			return nil
		}
		if s.strict && !from.CanTransitionTo(input.PaymentStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment cannot move from %s to %s", from, input.PaymentStatus)).
				WithDetails(pkgerrors.Violation{Field: "payment_status", Reason: fmt.Sprintf("%s -> %s not allowed", from, input.PaymentStatus)})
		}
		ok, err := repo.UpdatePaymentStatus(ctx, order.ID, from, input.PaymentStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment status changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data: payloads.OrderPaymentStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.PaymentStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment status event")
		}

		updated, err = loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(updated), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := loadOrder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*OrderDTO, error) {
	order, err := s.findByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// Track lets a customer look up their order. A mismatched email reports not
// found so order numbers cannot be enumerated.
func (s *service) Track(ctx context.Context, number, email string) (*TrackingDTO, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	order, err := s.findByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return newTrackingDTO(order), nil
}

func (s *service) List(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if filters.PaymentStatus != nil && !filters.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
	}
	query := listOrdersParams{
		Status:        filters.Status,
		PaymentStatus: filters.PaymentStatus,
		Email:         filters.Email,
		Limit:         params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for i := range rows {
		list.Orders = append(list.Orders, newOrderSummary(&rows[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) RevenueByDay(ctx context.Context, from, to time.Time) ([]DailyRevenue, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "range cannot exceed one year")
	}
	rows, err := s.repo.RevenueByDay(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenue by day")
	}
	if rows == nil {
		rows = []DailyRevenue{}
	}
	return rows, nil
}

func (s *service) findByNumber(ctx context.Context, number string) (*models.Order, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
