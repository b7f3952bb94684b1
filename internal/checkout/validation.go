package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func normalizeInput(input Input) Input {
	input.Customer = input.Customer.Normalize()
	input.ShippingAddress = input.ShippingAddress.Normalize()
	if input.BillingAddress != nil {
		billing := input.BillingAddress.Normalize()
		input.BillingAddress = &billing
	}
	return input
}

// validateDetails checks the customer payload, returning every field problem.
func validateDetails(input Input) error {
	var errs error
	if err := input.Customer.Validate(); err != nil {
		errs = multierr.Append(errs, fieldError("customer", err.Error()))
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		errs = multierr.Append(errs, fieldError("shipping_address", err.Error()))
	}
	if input.BillingAddress != nil {
		if err := input.BillingAddress.Validate(); err != nil {
			errs = multierr.Append(errs, fieldError("billing_address", err.Error()))
		}
	}
	if !input.PaymentMethod.IsValid() {
		errs = multierr.Append(errs, fieldError("payment_method", fmt.Sprintf("unsupported payment method %q", input.PaymentMethod)))
	}
	return errs
}

// validateLines re-checks each cart line against live catalog state.
func validateLines(items []models.CartItem, catalog map[uuid.UUID]*models.Product) error {
	var errs error
	for _, item := range items {
		errs = multierr.Append(errs, validateLine(item, catalog[item.ProductID]))
	}
	return errs
}

func validateLine(item models.CartItem, product *models.Product) error {
	if product == nil {
		return lineError(pkgerrors.CodeProductUnavailable, item, fmt.Sprintf("%s is no longer available", item.Name), "not_found")
	}
	if !product.IsActive {
		return lineError(pkgerrors.CodeProductUnavailable, item, fmt.Sprintf("%s is no longer available", item.Name), "inactive")
	}
	variant, ok := product.Variant(item.VariantID)
	if !ok {
		return lineError(pkgerrors.CodeVariantNotFound, item, fmt.Sprintf("%s is no longer offered", item.Name), "not_found")
	}
	if variant.Stock < item.Quantity {
		return lineError(pkgerrors.CodeInsufficientStock, item,
			fmt.Sprintf("only %d of %s available", variant.Stock, item.SKU),
			fmt.Sprintf("requested %d, available %d", item.Quantity, variant.Stock))
	}
	return nil
}

func lineError(code pkgerrors.Code, item models.CartItem, message, reason string) error {
	return pkgerrors.New(code, message).WithDetails(pkgerrors.Violation{
		ProductID: item.ProductID.String(),
		VariantID: item.VariantID.String(),
		Reason:    reason,
	})
}

func fieldError(field, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, reason).WithDetails(pkgerrors.Violation{Field: field, Reason: reason})
}

func stockExhausted(item models.CartItem) error {
	return lineError(pkgerrors.CodeInsufficientStock, item,
		fmt.Sprintf("%s sold out while placing the order", item.SKU),
		fmt.Sprintf("requested %d", item.Quantity))
}

// fatal reports whether err is an infrastructure failure rather than a
// problem the buyer can fix.
func fatal(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	switch typed.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return true
	}
	return false
}
