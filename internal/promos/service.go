package promos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes promo lookups for carts and checkout plus admin management.
type Service interface {
	FindUsable(ctx context.Context, code string, subtotal int64) (*models.PromoCode, error)
	Validate(ctx context.Context, code string, subtotal int64) (*ValidateResult, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*models.PromoCode, error)
	Create(ctx context.Context, input CreatePromoInput) (*PromoDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePromoInput) (*PromoDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page pagination.Page, activeOnly bool) (*PromoListResult, error)
	UsageStats(ctx context.Context) ([]UsageStat, error)
}

// CreatePromoInput carries a new promo definition.
type CreatePromoInput struct {
	Code             string
	Description      *string
	DiscountType     enums.DiscountType
	Value            decimal.Decimal
	MaxDiscountCents *int64
	MinOrderCents    *int64
	ValidFrom        time.Time
	ValidTo          time.Time
	MaxUses          *int
	IsActive         bool
}

// UpdatePromoInput patches an existing promo; nil fields are left unchanged.
type UpdatePromoInput struct {
	Description      *string
	Value            *decimal.Decimal
	MaxDiscountCents *int64
	MinOrderCents    *int64
	ValidFrom        *time.Time
	ValidTo          *time.Time
	MaxUses          *int
	IsActive         *bool
}

type service struct {
	repo   *Repository
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the promo service.
func NewService(repo *Repository, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, outbox: outbox, now: func() time.Time { return time.Now().UTC() }}, nil
}

// InvalidPromoError builds the client-facing error for an unusable code.
func InvalidPromoError(code string, reason Reason) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPromo, fmt.Sprintf("promo code %s is not valid: %s", code, reason)).
		WithDetails(pkgerrors.Violation{Field: "promo_code", Reason: string(reason)})
}

func (s *service) lookup(ctx context.Context, code string) (*models.PromoCode, error) {
	promo, err := s.repo.FindByCode(ctx, NormalizeCode(code))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	return promo, nil
}

func (s *service) FindUsable(ctx context.Context, code string, subtotal int64) (*models.PromoCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, InvalidPromoError(normalized, ReasonNotFound)
	}
	promo, err := s.lookup(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if eval := Evaluate(promo, subtotal, s.now()); !eval.Valid {
		return nil, InvalidPromoError(normalized, eval.Reason)
	}
	return promo, nil
}

func (s *service) Validate(ctx context.Context, code string, subtotal int64) (*ValidateResult, error) {
	if subtotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal_cents must be >= 0")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return &ValidateResult{Reason: ReasonNotFound}, nil
	}
	promo, err := s.lookup(ctx, normalized)
	if err != nil {
		return nil, err
	}
	eval := Evaluate(promo, subtotal, s.now())
	if !eval.Valid {
		return &ValidateResult{Reason: eval.Reason}, nil
	}
	return &ValidateResult{IsValid: true, Discount: eval.Discount, Promo: newPublicPromoDTO(promo)}, nil
}

// Redeem consumes one use of code inside tx. When that use was the last one a
// promo.exhausted event is queued on the same transaction.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*models.PromoCode, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	normalized := NormalizeCode(code)
	repo := s.repo.WithTx(tx)
	promo, err := repo.FindByCode(ctx, normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, InvalidPromoError(normalized, ReasonNotFound)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}

	if err := repo.IncrementUsage(ctx, promo.ID, now); err != nil {
		if errors.Is(err, ErrPromoExhausted) {
			reason := availability(promo, now)
			if reason == ReasonNone {
				reason = ReasonExhausted
			}
			return nil, InvalidPromoError(normalized, reason)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment promo usage")
	}

	promo.UsedCount++
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		event := outbox.DomainEvent{
			EventType:     enums.EventPromoExhausted,
			AggregateType: enums.AggregatePromo,
			AggregateID:   promo.ID,
			OccurredAt:    now,
			Data: payloads.PromoExhaustedEvent{
				PromoID:     promo.ID,
				Code:        promo.Code,
				MaxUses:     *promo.MaxUses,
				ExhaustedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit promo exhausted event")
		}
	}
	return promo, nil
}

func (s *service) Create(ctx context.Context, input CreatePromoInput) (*PromoDTO, error) {
	promo := &models.PromoCode{
		ID:               uuid.New(),
		Code:             NormalizeCode(input.Code),
		Description:      input.Description,
		DiscountType:     input.DiscountType,
		Value:            input.Value,
		MaxDiscountCents: input.MaxDiscountCents,
		MinOrderCents:    input.MinOrderCents,
		ValidFrom:        input.ValidFrom.UTC(),
		ValidTo:          input.ValidTo.UTC(),
		MaxUses:          input.MaxUses,
		IsActive:         input.IsActive,
	}
	if !codePattern.MatchString(promo.Code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code must be 3-32 characters of A-Z, 0-9, '-' or '_'").
			WithDetails(pkgerrors.Violation{Field: "code", Reason: "format"})
	}
	if err := validatePromo(promo); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		if db.IsUniqueViolation(err, "promo_codes_code_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promo code already exists").
				WithDetails(pkgerrors.Violation{Field: "code", Reason: "duplicate"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert promo code")
	}
	return NewPromoDTO(promo), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePromoInput) (*PromoDTO, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}

	if input.Description != nil {
		promo.Description = input.Description
	}
	if input.Value != nil {
		promo.Value = *input.Value
	}
	if input.MaxDiscountCents != nil {
		promo.MaxDiscountCents = input.MaxDiscountCents
	}
	if input.MinOrderCents != nil {
		promo.MinOrderCents = input.MinOrderCents
	}
	if input.ValidFrom != nil {
		promo.ValidFrom = input.ValidFrom.UTC()
	}
	if input.ValidTo != nil {
		promo.ValidTo = input.ValidTo.UTC()
	}
	if input.MaxUses != nil {
		promo.MaxUses = input.MaxUses
	}
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}
	if err := validatePromo(promo); err != nil {
		return nil, err
	}
	if promo.MaxUses != nil && *promo.MaxUses < promo.UsedCount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_uses cannot be below used_count").
			WithDetails(pkgerrors.Violation{Field: "max_uses", Reason: fmt.Sprintf("used %d", promo.UsedCount)})
	}
	promo.ValidFrom = promo.ValidFrom.UTC()
	promo.ValidTo = promo.ValidTo.UTC()
	if err := s.repo.UpdateDefinition(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update promo code")
	}
	return NewPromoDTO(promo), nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate promo code")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, page pagination.Page, activeOnly bool) (*PromoListResult, error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, page, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promo codes")
	}
	result := &PromoListResult{
		Promos: make([]PromoDTO, 0, len(rows)),
		Page:   page.Number,
		Limit:  page.Limit,
		Total:  total,
	}
	for i := range rows {
		result.Promos = append(result.Promos, *NewPromoDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) UsageStats(ctx context.Context) ([]UsageStat, error) {
	stats, err := s.repo.UsageStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promo usage stats")
	}
	if stats == nil {
		stats = []UsageStat{}
	}
	return stats, nil
}

func validatePromo(p *models.PromoCode) error {
	invalid := func(field, msg string) error {
		return pkgerrors.New(pkgerrors.CodeValidation, msg).
			WithDetails(pkgerrors.Violation{Field: field, Reason: "invalid"})
	}
	if !p.DiscountType.IsValid() {
		return invalid("discount_type", fmt.Sprintf("invalid discount type %q", p.DiscountType))
	}
	if !p.Value.IsPositive() {
		return invalid("value", "value must be positive")
	}
	if p.DiscountType == enums.DiscountTypePercentage && p.Value.GreaterThan(hundred) {
		return invalid("value", "percentage value cannot exceed 100")
	}
	if p.MaxDiscountCents != nil && *p.MaxDiscountCents < 0 {
		return invalid("max_discount_cents", "max_discount_cents must be >= 0")
	}
	if p.MinOrderCents != nil && *p.MinOrderCents < 0 {
		return invalid("min_order_cents", "min_order_cents must be >= 0")
	}
	if p.ValidFrom.IsZero() || p.ValidTo.IsZero() || !p.ValidTo.After(p.ValidFrom) {
		return invalid("valid_to", "valid_to must be after valid_from")
	}
	if p.MaxUses != nil && *p.MaxUses < 1 {
		return invalid("max_uses", "max_uses must be >= 1")
	}
	return nil
}
