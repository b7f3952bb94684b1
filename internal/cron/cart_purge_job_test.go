package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type repoPurger struct {
	repo *cart.Repository
}

func (p repoPurger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return p.repo.DeleteExpired(ctx, now)
}

func TestCartPurgeJobDeletesOnlyExpiredCarts(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := cart.NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := &models.Cart{ID: uuid.New(), Token: "stale", ExpiresAt: now.Add(-time.Minute)}
	live := &models.Cart{ID: uuid.New(), Token: "live", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, live))

	job, err := NewCartPurgeJob(CartPurgeJobParams{Logger: logger.Nop(), Carts: repoPurger{repo: repo}})
	require.NoError(t, err)
	job.(*cartPurgeJob).now = func() time.Time { return now }

	rows, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	_, err = repo.FindByToken(ctx, "live")
	assert.NoError(t, err)
	_, err = repo.FindByToken(ctx, "stale")
	assert.Error(t, err)

}
