package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemKeyCacheExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newMemKeyCache(time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &APIKeyRow{Key: "k", Credit: 7, IsActive: true}))
	row, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), row.Credit)

	// callers get a copy
	row.Credit = 0
	row, _, _ = c.Get(ctx, "k")
	assert.Equal(t, int64(7), row.Credit)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.data)
}

func TestMemKeyCacheDelete(t *testing.T) {
	c := newMemKeyCache(0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, &APIKeyRow{Key: "k"}))
	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, nil))
	assert.Equal(t, 30*time.Second, c.ttl)
}

func TestNewKeyCacheFallsBackToMemory(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "")
	c, err := newKeyCache(Config{KeyCacheTTLSec: 5})
	require.NoError(t, err)
	defer c.Close()

	mem, ok := c.(*memKeyCache)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, mem.ttl)
}
