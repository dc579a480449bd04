// Package cache provides a best-effort Redis cache for assistant responses.
// A missing or unreachable Redis simply disables caching; nothing in here is
// load bearing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const assistantTTL = 10 * time.Minute

type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr. On any failure it returns a disabled cache
// and the application continues without caching.
func New(addr string) *Cache {
	if addr == "" {
		return &Cache{}
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid address %q: %v (continuing without cache)", addr, err)
			return &Cache{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		return &Cache{}
	}
	log.Println("Redis connected successfully")
	return &Cache{client: client}
}

// Enabled reports whether a Redis connection is available.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// AssistantKey derives a stable cache key for an assistant query.
func AssistantKey(flag, userInput string) string {
	sum := sha256.Sum256([]byte(flag + "\x00" + userInput))
	return "assistant:" + hex.EncodeToString(sum[:])
}

// Get returns the cached value for key, or false if absent or the cache is
// disabled.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Redis GET failed for %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Set stores value under key with the assistant TTL. Failures are logged and
// ignored.
func (c *Cache) Set(ctx context.Context, key, value string) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, assistantTTL).Err(); err != nil {
		log.Printf("Redis SET failed for %s: %v", key, err)
	}
}

// Close releases the Redis connection if one was established.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
