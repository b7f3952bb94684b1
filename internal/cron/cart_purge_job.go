package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// CartPurgeJobParams configure the expired cart cleanup.
type CartPurgeJobParams struct {
	Logger *logger.Logger
	Carts  cartPurger
}

type cartPurgeJob struct {
	logg  *logger.Logger
	carts cartPurger
	now   func() time.Time
}

// NewCartPurgeJob removes guest carts whose retention window has elapsed.
// Expired carts are already invisible to readers, so this only reclaims rows.
func NewCartPurgeJob(params CartPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &cartPurgeJob{logg: params.Logger, carts: params.Carts, now: time.Now}, nil
}

func (j *cartPurgeJob) Name() string { return "cart-purge" }

func (j *cartPurgeJob) Run(ctx context.Context) (int64, error) {
	deleted, err := j.carts.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge carts: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(ctx, "expired carts purged")
	}
	return deleted, nil
}
