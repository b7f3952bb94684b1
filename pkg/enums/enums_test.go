package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusShipped, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.want, got)
		}
	}
	if !OrderStatusCancelled.IsTerminal() || OrderStatusShipped.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	t.Parallel()

	if !PaymentStatusPending.CanTransitionTo(PaymentStatusPaid) {
		t.Fatalf("pending -> paid should be allowed")
	}
	if !PaymentStatusPaid.CanTransitionTo(PaymentStatusRefunded) {
		t.Fatalf("paid -> refunded should be allowed")
	}
	if PaymentStatusRefunded.CanTransitionTo(PaymentStatusPaid) {
		t.Fatalf("refunded is terminal")
	}
	if PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded) {
		t.Fatalf("pending -> refunded should be rejected")
	}
}

func TestParseHelpers(t *testing.T) {
	t.Parallel()

	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatalf("expected error for unknown order status")
	}
	if _, err := ParseDiscountType("bogo"); err == nil {
		t.Fatalf("expected error for unknown discount type")
	}
	if sort, err := ParseProductSort(""); err != nil || sort != ProductSortNewest {
		t.Fatalf("empty sort should default to newest, got %q %v", sort, err)
	}
	if !PaymentMethodCashOnDelivery.IsValid() || PaymentMethod("barter").IsValid() {
		t.Fatalf("unexpected payment method validity")
	}
	if _, err := ParseOutboxEventType("order.created"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
