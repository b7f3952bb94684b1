package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// checkoutRequest leaves field checks to the checkout service so that
// validate-only can report every problem at once.
type checkoutRequest struct {
	Customer        types.CustomerInfo `json:"customer" validate:"-"`
	ShippingAddress types.Address      `json:"shipping_address" validate:"-"`
	BillingAddress  *types.Address     `json:"billing_address,omitempty" validate:"-"`
	PaymentMethod   string             `json:"payment_method"`
	PromoCode       *string            `json:"promo_code,omitempty"`
}

func (p checkoutRequest) toInput(cartToken string) checkoutsvc.Input {
	return checkoutsvc.Input{
		CartToken:       cartToken,
		Customer:        p.Customer,
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		PaymentMethod:   enums.PaymentMethod(strings.ToLower(strings.TrimSpace(p.PaymentMethod))),
		PromoCode:       p.PromoCode,
	}
}

type previewRequest struct {
	PromoCode *string `json:"promo_code,omitempty" validate:"omitempty,max=64"`
}

func cartTokenFrom(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get(middleware.CartTokenHeader))
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, middleware.CartTokenHeader+" header required")
	}
	return token, nil
}

// Checkout places the order for the caller's cart.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		token, err := cartTokenFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Commit(r.Context(), payload.toInput(token))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CheckoutValidate runs every checkout check without placing the order.
func CheckoutValidate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		token, err := cartTokenFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidateOnly(r.Context(), payload.toInput(token))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CheckoutPreview(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		token, err := cartTokenFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload previewRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		totals, err := svc.PreviewTotals(r.Context(), token, payload.PromoCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}
