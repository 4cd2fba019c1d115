package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values and short-lived locks under one key prefix
// ⭐ SSOT: 캐시/락 키 규칙은 여기서만
//
//	<prefix>:cache:<key>  JSON 값
//	<prefix>:lock:<name>  락 토큰
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache on client; every call is a no-op while client is disabled
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return c.prefix + ":cache:" + key
}

func (c *Cache) lockKey(name string) string {
	return c.prefix + ":lock:" + name
}

// Get decodes a cached value into dest; a missing key is (false, nil)
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON; ttl 0 means no expiry
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Redis().Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// UnlockFunc releases a lock taken by TryLock
type UnlockFunc func(ctx context.Context) error

// 토큰이 일치할 때만 삭제 (만료 후 다른 인스턴스가 잡은 락은 건드리지 않음)
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// TryLock takes the named lock for at most ttl without waiting.
// ok is false when another holder has it. A disabled client always grants the lock.
func (c *Cache) TryLock(ctx context.Context, name string, ttl time.Duration) (UnlockFunc, bool, error) {
	if !c.client.Enabled() {
		return func(context.Context) error { return nil }, true, nil
	}

	key := c.lockKey(name)
	token := uuid.NewString()
	ok, err := c.client.Redis().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.client.Redis(), []string{key}, token).Err(); err != nil {
			return fmt.Errorf("unlock %s: %w", name, err)
		}
		return nil
	}
	return unlock, true, nil
}

// Predefined TTLs
const (
	TTLStale = 7 * 24 * time.Hour // stale fallback 보존 기간
	TTLLock  = 10 * time.Minute   // 갱신 작업 락
)

// MarginRatesKey is the cache key for a margin type's latest rate snapshot
func MarginRatesKey(marginType string) string {
	return "margin:rates:" + marginType
}

// MarginRefreshLock names the lock held while one instance refreshes margin rates
const MarginRefreshLock = "margin_refresh"
