package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "promo_codes_code_key"}
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg any constraint", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "pg matching constraint", err: pgErr, constraint: "promo_codes_code_key", want: true},
		{name: "pg other constraint", err: pgErr, constraint: "orders_order_number_key", want: false},
		{name: "pg other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: product_variants.sku"), constraint: "sku", want: true},
		{name: "sqlite named constraint", err: errors.New("UNIQUE constraint failed: product_variants.sku"), constraint: "product_variants_sku_key", want: true},
		{name: "sqlite other column", err: errors.New("UNIQUE constraint failed: products.slug"), constraint: "product_variants_sku_key", want: false},
		{name: "unrelated", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}
