package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	t.Parallel()
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "cron:lock", "cron-a", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron:lock", "cron-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, first.ttl)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := second.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cron-a", holder)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "cron:lock", "a non-owner must not release the lock")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "cron:lock")

	holder, err = second.Holder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder)

	_, err = NewRedisLock(nil, "cron:lock", "cron-a", 0)
	assert.Error(t, err)
}

func TestRedisLockDefaultsInstanceName(t *testing.T) {
	t.Parallel()
	store := &memoryStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "cron:lock", " ", 0)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(store.values["cron:lock"], "unknown|"))
}
