package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promos"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type promoRedeemer interface {
	FindUsable(ctx context.Context, code string, subtotal int64) (*models.PromoCode, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*models.PromoCode, error)
}

type orderCreator interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a guest cart into an order.
type Service interface {
	Commit(ctx context.Context, input Input) (*orders.OrderDTO, error)
	ValidateOnly(ctx context.Context, input Input) (*ValidationResult, error)
	PreviewTotals(ctx context.Context, cartToken string, promoCode *string) (*Totals, error)
}

// Deps are the collaborators checkout reads from and writes through.
type Deps struct {
	Tx       txRunner
	Carts    *cart.Repository
	Products *products.Repository
	Promos   promoRedeemer
	Orders   orderCreator
	Outbox   outboxPublisher
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	products *products.Repository
	promos   promoRedeemer
	orders   orderCreator
	outbox   outboxPublisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.Promos == nil {
		return nil, fmt.Errorf("promo service required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:       deps.Tx,
		carts:    deps.Carts,
		products: deps.Products,
		promos:   deps.Promos,
		orders:   deps.Orders,
		outbox:   deps.Outbox,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      deps.Now,
	}, nil
}

// pricing is the discount a commit will charge and the code it consumes.
type pricing struct {
	discountCents int64
	promoCode     *string
}

func (s *service) Commit(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	started := time.Now()
	order, err := s.commit(ctx, normalizeInput(input))
	outcome := "ok"
	if err != nil {
		outcome = string(pkgerrors.As(err).Code())
	}
	s.metrics.ObserveCommit(outcome, time.Since(started))
	if err != nil {
		return nil, err
	}
	if order.PromoCode != nil {
		s.metrics.IncPromoRedemption(*order.PromoCode)
	}
	return orders.NewOrderDTO(order), nil
}

func (s *service) commit(ctx context.Context, input Input) (*models.Order, error) {
	if err := validateDetails(input); err != nil {
		return nil, multierr.Errors(err)[0]
	}
	now := s.now()
	record, err := cart.LoadLive(ctx, s.carts, input.CartToken, now)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithCartID(ctx, record.ID.String())
	cart.NewLedger(record).Recompute()
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items")
	}
	if err := s.checkLines(ctx, record); err != nil {
		return nil, multierr.Errors(err)[0]
	}
	price, err := s.price(ctx, record, input.PromoCode, now)
	if err != nil {
		return nil, err
	}

	order := buildOrder(record, input, price)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.CreateInTx(ctx, tx, order); err != nil {
			return err
		}
		stock := s.products.WithTx(tx)
		for _, item := range record.Items {
			ok, err := stock.DecrementStock(ctx, item.VariantID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return stockExhausted(item)
			}
		}
		if price.promoCode != nil {
			if _, err := s.promos.Redeem(ctx, tx, *price.promoCode, now); err != nil {
				return err
			}
		}

		cart.NewLedger(record).Clear()
		if err := s.carts.WithTx(tx).SaveVersioned(ctx, record); err != nil {
			if errors.Is(err, cart.ErrVersionConflict) {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified during checkout, review it and retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{Role: "guest"},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerEmail: order.CustomerEmail,
				PaymentMethod: order.PaymentMethod,
				PromoCode:     order.PromoCode,
				SubtotalCents: order.SubtotalCents,
				DiscountCents: order.DiscountCents,
				TotalCents:    order.TotalCents,
				ItemCount:     len(order.Items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created event")
		}
		return nil
	})
	if err != nil {
		if fatal(err) {
			s.logg.Error(ctx, "checkout commit failed", err)
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order placed")
	return order, nil
}

func (s *service) ValidateOnly(ctx context.Context, input Input) (*ValidationResult, error) {
	input = normalizeInput(input)
	errs := validateDetails(input)

	record, err := cart.LoadLive(ctx, s.carts, input.CartToken, s.now())
	switch {
	case err != nil && fatal(err):
		return nil, err
	case err != nil:
		errs = multierr.Append(errs, err)
	case len(record.Items) == 0:
		errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items"))
	default:
		if err := s.checkLines(ctx, record); err != nil {
			if fatal(err) {
				return nil, err
			}
			errs = multierr.Append(errs, err)
		}
		if _, err := s.price(ctx, record, input.PromoCode, s.now()); err != nil {
			if fatal(err) {
				return nil, err
			}
			errs = multierr.Append(errs, err)
		}
	}

	result := &ValidationResult{Errors: []Problem{}}
	for _, problem := range multierr.Errors(errs) {
		result.Errors = append(result.Errors, problemFrom(problem))
	}
	result.IsValid = len(result.Errors) == 0
	return result, nil
}

func (s *service) PreviewTotals(ctx context.Context, cartToken string, promoCode *string) (*Totals, error) {
	now := s.now()
	record, err := cart.LoadLive(ctx, s.carts, cartToken, now)
	if err != nil {
		return nil, err
	}
	price, err := s.price(ctx, record, promoCode, now)
	if err != nil {
		return nil, err
	}
	return &Totals{
		SubtotalCents: record.SubtotalCents,
		DiscountCents: price.discountCents,
		TotalCents:    record.SubtotalCents - price.discountCents,
		PromoCode:     price.promoCode,
	}, nil
}

// checkLines loads the live catalog rows for every line and returns all
// line problems combined.
func (s *service) checkLines(ctx context.Context, record *models.Cart) error {
	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return validateLines(record.Items, catalog)
}

// price resolves the discount for the cart's current subtotal. A supplied
// code must be usable. A code carried on the cart is re-resolved the same
// way and dropped when it no longer qualifies, matching the cart's own
// repricing, so validate, preview and commit always agree.
func (s *service) price(ctx context.Context, record *models.Cart, promoCode *string, now time.Time) (pricing, error) {
	if promoCode != nil && promos.NormalizeCode(*promoCode) != "" {
		promo, err := s.promos.FindUsable(ctx, *promoCode, record.SubtotalCents)
		if err != nil {
			return pricing{}, err
		}
		return priceWith(promo, record.SubtotalCents, now), nil
	}

	if record.PromoCode == nil {
		return pricing{}, nil
	}
	promo, err := s.promos.FindUsable(ctx, *record.PromoCode, record.SubtotalCents)
	if pkgerrors.IsCode(err, pkgerrors.CodeInvalidPromo) {
		s.logg.Warn(s.logg.WithField(ctx, "promo_code", *record.PromoCode), "stale cart promo dropped at checkout")
		return pricing{}, nil
	}
	if err != nil {
		return pricing{}, err
	}
	price := priceWith(promo, record.SubtotalCents, now)
	if price.discountCents == 0 {
		return pricing{}, nil
	}
	return price, nil
}

func priceWith(promo *models.PromoCode, subtotal int64, now time.Time) pricing {
	code := promo.Code
	return pricing{
		discountCents: promos.CalculateDiscount(promo, subtotal, now),
		promoCode:     &code,
	}
}

func buildOrder(record *models.Cart, input Input, price pricing) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		CartToken:       record.Token,
		Customer:        input.Customer,
		CustomerEmail:   input.Customer.Email,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		PaymentMethod:   input.PaymentMethod,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PromoCode:       price.promoCode,
		SubtotalCents:   record.SubtotalCents,
		DiscountCents:   price.discountCents,
		TotalCents:      record.SubtotalCents - price.discountCents,
		Items:           make([]models.OrderItem, 0, len(record.Items)),
	}
	for _, item := range record.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			SKU:            item.SKU,
			PriceCents:     item.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
		})
	}
	return order
}
