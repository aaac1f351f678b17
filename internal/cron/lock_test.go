package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "fb:cron:lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "fb:cron:lock", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release leaves the key alone
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "fb:cron:lock")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "fb:cron:lock")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

type atomicRedis struct {
	memoryRedis
	cadCalls int
}

func (a *atomicRedis) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	a.cadCalls++
	if a.values[key] != value {
		return false, nil
	}
	delete(a.values, key)
	return true, nil
}

func TestRedisLockPrefersAtomicRelease(t *testing.T) {
	store := &atomicRedis{memoryRedis: memoryRedis{values: map[string]string{}}}
	lock, err := NewRedisLock(store, "fb:cron:lock", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, lock.Release(context.Background()))
	require.NoError(t, lock.Release(context.Background()))

	assert.Equal(t, 1, store.cadCalls)
	assert.Empty(t, store.values)
}
