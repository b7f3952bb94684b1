package cart

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
}

func (p addItemRequest) toInput() cart.AddItemInput {
	return cart.AddItemInput{
		ProductID: uuid.MustParse(p.ProductID),
		VariantID: uuid.MustParse(p.VariantID),
		Quantity:  p.Quantity,
	}
}

// updateQuantityRequest allows zero, which removes the line.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

func tokenFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(middleware.CartTokenHeader))
}

func requireToken(r *http.Request) (string, error) {
	token := tokenFromHeader(r)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, middleware.CartTokenHeader+" header required")
	}
	return token, nil
}

func lineParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	productID, err := validators.ParseUUIDParam(r, "productID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	variantID, err := validators.ParseUUIDParam(r, "variantID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return productID, variantID, nil
}
