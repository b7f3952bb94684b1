package cart

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ItemSnapshot is the product data captured on a line when it is first added.
type ItemSnapshot struct {
	ProductID  uuid.UUID
	VariantID  uuid.UUID
	Name       string
	SKU        string
	PriceCents int64
}

// Ledger applies cart mutations in memory and keeps the totals consistent with
// the lines. Every mutating method finishes with Recompute.
type Ledger struct {
	cart *models.Cart
}

// NewLedger wraps cart. The ledger mutates cart in place.
func NewLedger(cart *models.Cart) *Ledger {
	return &Ledger{cart: cart}
}

// Cart returns the wrapped cart.
func (l *Ledger) Cart() *models.Cart {
	return l.cart
}

func (l *Ledger) indexOf(productID, variantID uuid.UUID) int {
	for i := range l.cart.Items {
		if l.cart.Items[i].ProductID == productID && l.cart.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity currently held for the pair, zero when absent.
func (l *Ledger) Quantity(productID, variantID uuid.UUID) int {
	if idx := l.indexOf(productID, variantID); idx >= 0 {
		return l.cart.Items[idx].Quantity
	}
	return 0
}

// Has reports whether a line exists for the pair.
func (l *Ledger) Has(productID, variantID uuid.UUID) bool {
	return l.indexOf(productID, variantID) >= 0
}

// AddItem increments the existing line for the pair or appends a new one.
func (l *Ledger) AddItem(item ItemSnapshot, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
			WithDetails(pkgerrors.Violation{Field: "quantity", Reason: fmt.Sprintf("got %d", quantity)})
	}
	if idx := l.indexOf(item.ProductID, item.VariantID); idx >= 0 {
		l.cart.Items[idx].Quantity += quantity
	} else {
		l.cart.Items = append(l.cart.Items, models.CartItem{
			ID:         uuid.New(),
			CartID:     l.cart.ID,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Name:       item.Name,
			SKU:        item.SKU,
			PriceCents: item.PriceCents,
			Quantity:   quantity,
		})
	}
	l.Recompute()
	return nil
}

// UpdateQuantity sets the line quantity. Zero or less removes the line.
func (l *Ledger) UpdateQuantity(productID, variantID uuid.UUID, quantity int) error {
	idx := l.indexOf(productID, variantID)
	if idx < 0 {
		return itemNotFound(productID, variantID)
	}
	if quantity <= 0 {
		l.removeAt(idx)
	} else {
		l.cart.Items[idx].Quantity = quantity
	}
	l.Recompute()
	return nil
}

// RemoveItem deletes the line for the pair. Missing lines are ignored.
func (l *Ledger) RemoveItem(productID, variantID uuid.UUID) {
	if idx := l.indexOf(productID, variantID); idx >= 0 {
		l.removeAt(idx)
	}
	l.Recompute()
}

// ApplyPromo records code with a discount capped at the subtotal.
func (l *Ledger) ApplyPromo(code string, discountCents int64) {
	c := code
	l.cart.PromoCode = &c
	l.cart.DiscountCents = discountCents
	l.Recompute()
}

// RemovePromo drops the applied code and its discount.
func (l *Ledger) RemovePromo() {
	l.cart.PromoCode = nil
	l.cart.DiscountCents = 0
	l.Recompute()
}

// Clear empties the cart and removes any promo.
func (l *Ledger) Clear() {
	l.cart.Items = l.cart.Items[:0]
	l.cart.PromoCode = nil
	l.cart.DiscountCents = 0
	l.Recompute()
}

// Recompute derives subtotal and total from the lines and clamps the discount
// into [0, subtotal].
func (l *Ledger) Recompute() {
	var subtotal int64
	for i := range l.cart.Items {
		l.cart.Items[i].Position = i
		subtotal += l.cart.Items[i].LineTotalCents()
	}
	discount := l.cart.DiscountCents
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	l.cart.SubtotalCents = subtotal
	l.cart.DiscountCents = discount
	l.cart.TotalCents = subtotal - discount
}

func (l *Ledger) removeAt(idx int) {
	l.cart.Items = append(l.cart.Items[:idx], l.cart.Items[idx+1:]...)
}

func itemNotFound(productID, variantID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found in cart").
		WithDetails(pkgerrors.Violation{
			ProductID: productID.String(),
			VariantID: variantID.String(),
			Reason:    "not_in_cart",
		})
}
