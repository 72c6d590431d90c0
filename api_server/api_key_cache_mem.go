package main

import (
	"context"
	"sync"
	"time"
)

// keyCache sits in front of keyStore.GetAPIKey.
type keyCache interface {
	Get(ctx context.Context, key string) (*APIKeyRow, bool, error)
	Set(ctx context.Context, row *APIKeyRow) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// memKeyCache is a process-local TTL cache (not shared across instances).
type memKeyCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]cacheItem
}

type cacheItem struct {
	row    *APIKeyRow
	expire time.Time
}

func newMemKeyCache(ttl time.Duration) *memKeyCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &memKeyCache{
		ttl:  ttl,
		now:  time.Now,
		data: map[string]cacheItem{},
	}
}

func (c *memKeyCache) Close() error { return nil }

func (c *memKeyCache) Get(_ context.Context, key string) (*APIKeyRow, bool, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || it.row == nil {
		return nil, false, nil
	}
	if c.now().After(it.expire) {
		// lazy delete
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	row := *it.row
	return &row, true, nil
}

func (c *memKeyCache) Set(_ context.Context, row *APIKeyRow) error {
	if row == nil {
		return nil
	}
	cp := *row
	c.mu.Lock()
	c.data[row.Key] = cacheItem{row: &cp, expire: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *memKeyCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
