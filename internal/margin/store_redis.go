package margin

import (
	"context"
	"fmt"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/pkg/redis"
)

// RedisStore keeps snapshots in Redis so API replicas share one fetch
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore wraps a redis client; a disabled client behaves as an empty store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{cache: redis.NewCache(client, "stratfolio")}
}

// Load implements RateStore
func (s *RedisStore) Load(ctx context.Context, marginType contracts.MarginType) (Snapshot, error) {
	var snap Snapshot
	found, err := s.cache.Get(ctx, redis.MarginRatesKey(string(marginType)), &snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis load: %w", err)
	}
	if !found {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

// Save implements RateStore
// Entries outlive the freshness TTL so they can serve as stale fallback.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	if err := s.cache.Set(ctx, redis.MarginRatesKey(string(snap.MarginType)), snap, redis.TTLStale); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}
