package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	promosvc "github.com/angelmondragon/storefront-backend/internal/promos"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type validatePromoRequest struct {
	Code          string `json:"code" validate:"required,max=64"`
	SubtotalCents int64  `json:"subtotal_cents" validate:"gte=0"`
}

// ValidatePromo reports whether a code applies to the supplied subtotal.
// An unusable code is a 200 with is_valid=false and a reason.
func ValidatePromo(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		var payload validatePromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), payload.Code, payload.SubtotalCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminListPromos(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), pagination.Page{Number: page, Limit: limit}, activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, result.Promos, types.PageMeta{Page: result.Page, Limit: result.Limit, Total: result.Total})
	}
}

type createPromoRequest struct {
	Code             string          `json:"code" validate:"required,max=64"`
	Description      *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountType     string          `json:"discount_type" validate:"required"`
	Value            decimal.Decimal `json:"value"`
	MaxDiscountCents *int64          `json:"max_discount_cents,omitempty" validate:"omitempty,gte=0"`
	MinOrderCents    *int64          `json:"min_order_cents,omitempty" validate:"omitempty,gte=0"`
	ValidFrom        time.Time       `json:"valid_from" validate:"required"`
	ValidTo          time.Time       `json:"valid_to" validate:"required"`
	MaxUses          *int            `json:"max_uses,omitempty" validate:"omitempty,gte=1"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

func (r createPromoRequest) toInput() (promosvc.CreatePromoInput, error) {
	discountType, err := enums.ParseDiscountType(r.DiscountType)
	if err != nil {
		return promosvc.CreatePromoInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type")
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return promosvc.CreatePromoInput{
		Code:             r.Code,
		Description:      r.Description,
		DiscountType:     discountType,
		Value:            r.Value,
		MaxDiscountCents: r.MaxDiscountCents,
		MinOrderCents:    r.MinOrderCents,
		ValidFrom:        r.ValidFrom.UTC(),
		ValidTo:          r.ValidTo.UTC(),
		MaxUses:          r.MaxUses,
		IsActive:         active,
	}, nil
}

func AdminCreatePromo(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		var payload createPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

type updatePromoRequest struct {
	Description      *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	MaxDiscountCents *int64           `json:"max_discount_cents,omitempty" validate:"omitempty,gte=0"`
	MinOrderCents    *int64           `json:"min_order_cents,omitempty" validate:"omitempty,gte=0"`
	ValidFrom        *time.Time       `json:"valid_from,omitempty"`
	ValidTo          *time.Time       `json:"valid_to,omitempty"`
	MaxUses          *int             `json:"max_uses,omitempty" validate:"omitempty,gte=1"`
	IsActive         *bool            `json:"is_active,omitempty"`
}

func AdminUpdatePromo(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		promoID, err := validators.ParseUUIDParam(r, "promoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Update(r.Context(), promoID, promosvc.UpdatePromoInput{
			Description:      payload.Description,
			Value:            payload.Value,
			MaxDiscountCents: payload.MaxDiscountCents,
			MinOrderCents:    payload.MinOrderCents,
			ValidFrom:        utcPtr(payload.ValidFrom),
			ValidTo:          utcPtr(payload.ValidTo),
			MaxUses:          payload.MaxUses,
			IsActive:         payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

// AdminDeactivatePromo switches a promo off. Promos are never hard-deleted
// because orders keep their code.
func AdminDeactivatePromo(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		promoID, err := validators.ParseUUIDParam(r, "promoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminPromoStats(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}
		stats, err := svc.UsageStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
