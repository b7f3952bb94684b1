package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestOutboxRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{rows: 7}
	job := newOutboxRetentionJob(t, repo, 14)
	job.now = func() time.Time { return now }

	rows, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rows != 7 {
		t.Fatalf("expected 7 rows, got %d", rows)
	}
	want := now.Add(-14 * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestOutboxRetentionJobDefaultsAndErrors(t *testing.T) {
	repo := &fakeOutboxPruner{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0)
	if job.retention != outboxRetentionDays*24*time.Hour {
		t.Fatalf("expected default retention, got %s", job.retention)
	}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxPruner, days int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        logger.Nop(),
		DB:            passthroughTx{},
		Repository:    repo,
		RetentionDays: days,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return job.(*outboxRetentionJob)
}

type fakeOutboxPruner struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.rows, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
