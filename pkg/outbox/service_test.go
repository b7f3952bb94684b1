package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestEmitWritesEnvelope(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	orderID := uuid.New()
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &ActorRef{Subject: "cart-token", Role: "guest"},
		Data:          map[string]any{"order_id": orderID.String()},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "guest", envelope.Actor.Role)
	assert.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	t.Parallel()
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
	})
	require.Error(t, err)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     "order.teleported",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestFetchAndMarkLifecycle(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("topic unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, 3, errors.New("bad payload")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "topic unavailable", *rows[0].LastError)

	pending, err := repo.CountPending()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestDeletePublishedBefore(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventPromoExhausted,
			AggregateType: enums.AggregatePromo,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	pending, err := repo.CountPending()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}
