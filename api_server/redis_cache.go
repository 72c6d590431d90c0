package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisKeyCache shares key rows between gateway instances. Each row lives
// under prefix:key with the configured TTL.
type redisKeyCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisClientFromEnv() (*redis.Client, error) {
	if url := strings.TrimSpace(os.Getenv("REDIS_URL")); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opt), nil
	}

	host := getenv("REDIS_HOST", "127.0.0.1")
	port := getenvInt("REDIS_PORT", 6379)
	db := getenvInt("REDIS_DB", 0)
	user := strings.TrimSpace(os.Getenv("REDIS_USERNAME"))
	pass := strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	useTLS := strings.TrimSpace(os.Getenv("REDIS_SSL"))

	opt := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		DB:       db,
		Username: user,
		Password: pass,
	}
	if useTLS == "1" || strings.EqualFold(useTLS, "true") {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opt), nil
}

func newRedisKeyCache(rdb *redis.Client, prefix string, ttl time.Duration) (*redisKeyCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &redisKeyCache{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (c *redisKeyCache) redisKey(apiKey string) string {
	return c.prefix + ":" + apiKey
}

func (c *redisKeyCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *redisKeyCache) Get(ctx context.Context, apiKey string) (*APIKeyRow, bool, error) {
	raw, err := c.rdb.Get(ctx, c.redisKey(apiKey)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var row APIKeyRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		// treat a corrupt entry as a miss
		return nil, false, nil
	}
	return &row, true, nil
}

func (c *redisKeyCache) Set(ctx context.Context, row *APIKeyRow) error {
	if row == nil || strings.TrimSpace(row.Key) == "" {
		return errors.New("invalid row")
	}
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.redisKey(row.Key), b, c.ttl).Err()
}

func (c *redisKeyCache) Delete(ctx context.Context, apiKey string) error {
	return c.rdb.Del(ctx, c.redisKey(apiKey)).Err()
}

// newKeyCache picks redis when REDIS_URL or REDIS_HOST is set, else the
// in-process cache.
func newKeyCache(cfg Config) (keyCache, error) {
	ttl := time.Duration(cfg.KeyCacheTTLSec) * time.Second
	if !redisConfigured() {
		return newMemKeyCache(ttl), nil
	}
	rdb, err := newRedisClientFromEnv()
	if err != nil {
		return nil, err
	}
	return newRedisKeyCache(rdb, cfg.RedisKeysKey, ttl)
}
