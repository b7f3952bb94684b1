package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestUpdateStatusComparesFromStatus(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := dbtest.MustCreateOrder(t, conn, "cas@example.com", 1200)

	ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{"status": enums.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{"status": enums.OrderStatusCancelled})
	require.NoError(t, err)
	assert.False(t, ok, "stale from status must not apply")

	ok, err = repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid, enums.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	require.Len(t, stored.Items, 1)
}

func TestFindByNumber(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	order := dbtest.MustCreateOrder(t, conn, "num@example.com", 800)

	got, err := repo.FindByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "num@example.com", got.Customer.Email)
}
