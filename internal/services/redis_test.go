package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(fmt.Sprintf("redis://%s", mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCacheSetGet(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "plans", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "plans", Count: 3}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Get(ctx, "k", &got))
}

func TestGetOrSetCallsBackOnce(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() ([]string, error) {
		calls++
		return []string{"mpesa", "tigopesa"}, nil
	}

	got, err := GetOrSet(c, ctx, "methods", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"mpesa", "tigopesa"}, got)

	got, err = GetOrSet(c, ctx, "methods", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"mpesa", "tigopesa"}, got)
	assert.Equal(t, 1, calls, "second read is served from cache")
}

func TestGetOrSetNilCacheDegradesToDirectCall(t *testing.T) {
	ctx := context.Background()

	calls := 0
	fetch := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 2; i++ {
		got, err := GetOrSet[int](nil, ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}
	assert.Equal(t, 2, calls)
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("gateway down")
		}
		return "ok", nil
	}

	_, err := GetOrSet(c, ctx, "k", time.Minute, fetch)
	require.Error(t, err)

	got, err := GetOrSet(c, ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestAcquireLock(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	require.NoError(t, c.Delete(ctx, "sweep"))
	ok, err = c.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock is free again once released")
}
