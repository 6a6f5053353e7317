package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/pulse/pkg/config"
)

// admitScript prunes, counts and conditionally records in one round trip.
// Redis runs scripts atomically, so concurrent instances sharing the server
// observe a single ordering of admissions.
//
// KEYS[1] = window key
// ARGV[1] = now (unix ms), ARGV[2] = window (ms), ARGV[3] = limit,
// ARGV[4] = member, ARGV[5] = ttl (ms)
//
// Returns {count, admitted, oldest}; oldest is -1 for an empty window.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, tonumber(ARGV[5]))
  count = count + 1
  admitted = 1
end

local oldest = -1
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {count, admitted, oldest}
`)

// RedisStore implements Store on Redis sorted sets. It is the store to use
// when several relay instances must share one admission budget.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromConfig dials the server described by cfg.
func NewRedisStoreFromConfig(cfg config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return NewRedisStore(client)
}

// Admit implements Store.
func (r *RedisStore) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string, ttl time.Duration) (WindowState, error) {
	res, err := admitScript.Run(ctx, r.client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		member,
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return WindowState{}, fmt.Errorf("admit %q: %w", key, err)
	}
	if len(res) != 3 {
		return WindowState{}, fmt.Errorf("admit %q: unexpected script reply of length %d", key, len(res))
	}

	state := WindowState{
		Count:    int(res[0]),
		Admitted: res[1] == 1,
	}
	if res[2] >= 0 {
		state.Oldest = time.UnixMilli(res[2])
	}
	return state, nil
}

// Count implements Store.
func (r *RedisStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	minScore := fmt.Sprintf("%d", now.UnixMilli()-window.Milliseconds())
	n, err := r.client.ZCount(ctx, key, minScore, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", key, err)
	}
	return int(n), nil
}

// Reset implements Store.
func (r *RedisStore) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset %q: %w", key, err)
	}
	return nil
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// New builds the store selected by cfg.Store.
func New(cfg config.LimitsConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(0), nil
	case "redis":
		return NewRedisStoreFromConfig(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown counter store %q", cfg.Store)
	}
}
