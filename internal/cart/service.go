package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/promos"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DefaultTTL is the guest cart retention window.
const DefaultTTL = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type promoFinder interface {
	FindUsable(ctx context.Context, code string, subtotal int64) (*models.PromoCode, error)
}

// Service exposes guest cart operations addressed by cart token.
type Service interface {
	Open(ctx context.Context, token string) (*CartDTO, bool, error)
	Get(ctx context.Context, token string) (*CartDTO, error)
	AddItem(ctx context.Context, token string, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, token string, productID, variantID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, token string, productID, variantID uuid.UUID) (*CartDTO, error)
	ApplyPromo(ctx context.Context, token, code string) (*CartDTO, error)
	RemovePromo(ctx context.Context, token string) (*CartDTO, error)
	Clear(ctx context.Context, token string) (*CartDTO, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AddItemInput identifies the variant and amount to add.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

// Options configures the cart service.
type Options struct {
	TTL    time.Duration
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
	promos   promoFinder
	ttl      time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, promoSvc promoFinder, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if promoSvc == nil {
		return nil, fmt.Errorf("promo finder required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		promos:   promoSvc,
		ttl:      opts.TTL,
		logg:     opts.Logger,
		now:      opts.Now,
	}, nil
}

// LoadLive resolves token to a cart that has not expired at now. Absent and
// expired carts both yield CART_NOT_FOUND.
func LoadLive(ctx context.Context, repo *Repository, token string, now time.Time) (*models.Cart, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCartNotFound, "cart token required")
	}
	cart, err := repo.FindByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeCartNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.IsExpired(now) {
		return nil, pkgerrors.New(pkgerrors.CodeCartNotFound, "cart expired")
	}
	return cart, nil
}

func (s *service) Open(ctx context.Context, token string) (*CartDTO, bool, error) {
	now := s.now()
	if strings.TrimSpace(token) != "" {
		cart, err := LoadLive(ctx, s.repo, token, now)
		if err == nil {
			return NewCartDTO(cart), false, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeCartNotFound) {
			return nil, false, err
		}
	}

	cart := &models.Cart{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	s.logg.Info(s.logg.WithCartID(ctx, cart.ID.String()), "cart opened")
	return NewCartDTO(cart), true, nil
}

func (s *service) Get(ctx context.Context, token string) (*CartDTO, error) {
	cart, err := LoadLive(ctx, s.repo, token, s.now())
	if err != nil {
		return nil, err
	}
	return NewCartDTO(cart), nil
}

func (s *service) AddItem(ctx context.Context, token string, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
			WithDetails(pkgerrors.Violation{Field: "quantity", Reason: fmt.Sprintf("got %d", input.Quantity)})
	}
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		variant, err := s.purchasable(ctx, input.ProductID, input.VariantID)
		if err != nil {
			return err
		}
		wanted := ledger.Quantity(input.ProductID, input.VariantID) + input.Quantity
		if err := checkStock(variant, wanted); err != nil {
			return err
		}
		snapshot := ItemSnapshot{
			ProductID:  input.ProductID,
			VariantID:  variant.variant.ID,
			Name:       variant.displayName(),
			SKU:        variant.variant.SKU,
			PriceCents: variant.variant.PriceCents,
		}
		if err := ledger.AddItem(snapshot, input.Quantity); err != nil {
			return err
		}
		return s.reprice(ctx, ledger)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, token string, productID, variantID uuid.UUID, quantity int) (*CartDTO, error) {
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		if !ledger.Has(productID, variantID) {
			return itemNotFound(productID, variantID)
		}
		if quantity > ledger.Quantity(productID, variantID) {
			variant, err := s.purchasable(ctx, productID, variantID)
			if err != nil {
				return err
			}
			if err := checkStock(variant, quantity); err != nil {
				return err
			}
		}
		if err := ledger.UpdateQuantity(productID, variantID, quantity); err != nil {
			return err
		}
		return s.reprice(ctx, ledger)
	})
}

func (s *service) RemoveItem(ctx context.Context, token string, productID, variantID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		ledger.RemoveItem(productID, variantID)
		return s.reprice(ctx, ledger)
	})
}

func (s *service) ApplyPromo(ctx context.Context, token, code string) (*CartDTO, error) {
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		cart := ledger.Cart()
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot apply a promo code to an empty cart")
		}
		promo, err := s.promos.FindUsable(ctx, code, cart.SubtotalCents)
		if err != nil {
			return err
		}
		discount := promos.CalculateDiscount(promo, cart.SubtotalCents, s.now())
		ledger.ApplyPromo(promo.Code, discount)
		return nil
	})
}

func (s *service) RemovePromo(ctx context.Context, token string) (*CartDTO, error) {
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		ledger.RemovePromo()
		return nil
	})
}

func (s *service) Clear(ctx context.Context, token string) (*CartDTO, error) {
	return s.mutate(ctx, token, func(ctx context.Context, ledger *Ledger) error {
		ledger.Clear()
		return nil
	})
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge expired carts")
	}
	return removed, nil
}

// mutate loads the live cart, applies fn through the ledger and persists the
// result with a version check. Lookups in fn run before the write transaction.
func (s *service) mutate(ctx context.Context, token string, fn func(ctx context.Context, ledger *Ledger) error) (*CartDTO, error) {
	cart, err := LoadLive(ctx, s.repo, token, s.now())
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithCartID(ctx, cart.ID.String())

	ledger := NewLedger(cart)
	if err := fn(ctx, ledger); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SaveVersioned(ctx, cart)
	})
	if errors.Is(err, ErrVersionConflict) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, reload and retry")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return NewCartDTO(cart), nil
}

// reprice re-derives the applied promo discount from the current subtotal and
// drops the promo once it no longer grants anything.
func (s *service) reprice(ctx context.Context, ledger *Ledger) error {
	cart := ledger.Cart()
	if cart.PromoCode == nil {
		return nil
	}
	code := *cart.PromoCode
	if len(cart.Items) == 0 {
		ledger.RemovePromo()
		return nil
	}
	promo, err := s.promos.FindUsable(ctx, code, cart.SubtotalCents)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidPromo) {
			s.logg.Info(s.logg.WithField(ctx, "promo_code", code), "promo removed from cart")
			ledger.RemovePromo()
			return nil
		}
		return err
	}
	discount := promos.CalculateDiscount(promo, cart.SubtotalCents, s.now())
	if discount == 0 {
		ledger.RemovePromo()
		return nil
	}
	ledger.ApplyPromo(promo.Code, discount)
	return nil
}

type purchasableVariant struct {
	product *models.Product
	variant *models.ProductVariant
}

func (p purchasableVariant) displayName() string {
	if p.variant.Name == "" || strings.EqualFold(p.variant.Name, "default") {
		return p.product.Name
	}
	return fmt.Sprintf("%s - %s", p.product.Name, p.variant.Name)
}

func (s *service) purchasable(ctx context.Context, productID, variantID uuid.UUID) (purchasableVariant, error) {
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return purchasableVariant{}, productUnavailable(productID, "not_found")
	}
	if err != nil {
		return purchasableVariant{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return purchasableVariant{}, productUnavailable(productID, "inactive")
	}
	variant, ok := product.Variant(variantID)
	if !ok {
		return purchasableVariant{}, pkgerrors.New(pkgerrors.CodeVariantNotFound, "variant not found").
			WithDetails(pkgerrors.Violation{ProductID: productID.String(), VariantID: variantID.String(), Reason: "not_found"})
	}
	return purchasableVariant{product: product, variant: variant}, nil
}

func checkStock(p purchasableVariant, wanted int) error {
	if p.variant.Stock >= wanted {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d of %s available", p.variant.Stock, p.variant.SKU)).
		WithDetails(pkgerrors.Violation{
			ProductID: p.product.ID.String(),
			VariantID: p.variant.ID.String(),
			Reason:    fmt.Sprintf("requested %d, available %d", wanted, p.variant.Stock),
		})
}

func productUnavailable(productID uuid.UUID, reason string) error {
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available").
		WithDetails(pkgerrors.Violation{ProductID: productID.String(), Reason: reason})
}
