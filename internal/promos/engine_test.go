package promos

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func samplePromo(kind enums.DiscountType, value int64) *models.PromoCode {
	return &models.PromoCode{
		Code:         "SAVE",
		DiscountType: kind,
		Value:        decimal.NewFromInt(value),
		ValidFrom:    engineNow.Add(-time.Hour),
		ValidTo:      engineNow.Add(time.Hour),
		IsActive:     true,
	}
}

func ptr[T any](v T) *T { return &v }

func TestCalculateDiscount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		promo    func() *models.PromoCode
		subtotal int64
		want     int64
	}{
		{
			name: "percentage clamped by max discount",
			promo: func() *models.PromoCode {
				p := samplePromo(enums.DiscountTypePercentage, 20)
				p.MaxDiscountCents = ptr(int64(1500))
				return p
			},
			subtotal: 10000,
			want:     1500,
		},
		{
			name:     "percentage rounds half up",
			promo:    func() *models.PromoCode { return samplePromo(enums.DiscountTypePercentage, 15) },
			subtotal: 1010,
			want:     152,
		},
		{
			name:     "fixed clamped to subtotal",
			promo:    func() *models.PromoCode { return samplePromo(enums.DiscountTypeFixed, 1500) },
			subtotal: 1000,
			want:     1000,
		},
		{
			name: "fixed clamped by max discount",
			promo: func() *models.PromoCode {
				p := samplePromo(enums.DiscountTypeFixed, 900)
				p.MaxDiscountCents = ptr(int64(500))
				return p
			},
			subtotal: 5000,
			want:     500,
		},
		{
			name: "exhausted",
			promo: func() *models.PromoCode {
				p := samplePromo(enums.DiscountTypePercentage, 50)
				p.MaxUses = ptr(1)
				p.UsedCount = 1
				return p
			},
			subtotal: 10000,
			want:     0,
		},
		{
			name: "below minimum",
			promo: func() *models.PromoCode {
				p := samplePromo(enums.DiscountTypeFixed, 500)
				p.MinOrderCents = ptr(int64(3000))
				return p
			},
			subtotal: 2999,
			want:     0,
		},
		{
			name: "outside window while active",
			promo: func() *models.PromoCode {
				p := samplePromo(enums.DiscountTypeFixed, 500)
				p.ValidTo = engineNow.Add(-time.Minute)
				return p
			},
			subtotal: 5000,
			want:     0,
		},
		{
			name:     "empty subtotal",
			promo:    func() *models.PromoCode { return samplePromo(enums.DiscountTypeFixed, 500) },
			subtotal: 0,
			want:     0,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			promo := tc.promo()
			before := *promo
			got := CalculateDiscount(promo, tc.subtotal, engineNow)
			if got != tc.want {
				t.Fatalf("discount = %d, want %d", got, tc.want)
			}
			if again := CalculateDiscount(promo, tc.subtotal, engineNow); again != got {
				t.Fatalf("second call = %d, want %d", again, got)
			}
			if promo.UsedCount != before.UsedCount || !promo.Value.Equal(before.Value) {
				t.Fatalf("promo mutated: %+v", promo)
			}
		})
	}
}

func TestEvaluateReasons(t *testing.T) {
	t.Parallel()

	inactive := samplePromo(enums.DiscountTypeFixed, 100)
	inactive.IsActive = false
	future := samplePromo(enums.DiscountTypeFixed, 100)
	future.ValidFrom = engineNow.Add(time.Minute)
	past := samplePromo(enums.DiscountTypeFixed, 100)
	past.ValidTo = engineNow.Add(-time.Minute)
	used := samplePromo(enums.DiscountTypeFixed, 100)
	used.MaxUses = ptr(3)
	used.UsedCount = 3
	floor := samplePromo(enums.DiscountTypeFixed, 100)
	floor.MinOrderCents = ptr(int64(1000))

	cases := map[Reason]*models.PromoCode{
		ReasonNotFound:     nil,
		ReasonInactive:     inactive,
		ReasonNotStarted:   future,
		ReasonExpired:      past,
		ReasonExhausted:    used,
		ReasonBelowMinimum: floor,
	}
	for want, promo := range cases {
		got := Evaluate(promo, 500, engineNow)
		if got.Valid || got.Reason != want || got.Discount != 0 {
			t.Fatalf("expected %s, got %+v", want, got)
		}
	}

	ok := Evaluate(samplePromo(enums.DiscountTypeFixed, 100), 500, engineNow)
	if !ok.Valid || ok.Discount != 100 || ok.Reason != ReasonNone {
		t.Fatalf("unexpected evaluation %+v", ok)
	}
}

func TestIsValidWindowIsInclusive(t *testing.T) {
	t.Parallel()
	promo := samplePromo(enums.DiscountTypeFixed, 100)
	if !IsValid(promo, promo.ValidFrom) || !IsValid(promo, promo.ValidTo) {
		t.Fatal("window bounds should be usable")
	}
	promo.MaxUses = ptr(2)
	promo.UsedCount = 1
	if !IsValid(promo, engineNow) {
		t.Fatal("promo with remaining uses should be valid")
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()
	if got := NormalizeCode("  summer10 "); got != "SUMMER10" {
		t.Fatalf("got %q", got)
	}
}
