package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"MutationScanner/internal/config"
	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

// acquireScript sets every key to the caller's token, or none of them when
// one already exists. It returns the 1-based index of the first held key, or 0.
var acquireScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	if redis.call("EXISTS", key) == 1 then
		return i
	end
end
local ttl = tonumber(ARGV[2])
for _, key in ipairs(KEYS) do
	if ttl > 0 then
		redis.call("SET", key, ARGV[1], "PX", ttl)
	else
		redis.call("SET", key, ARGV[1])
	end
end
return 0
`)

// releaseScript deletes only the keys still holding the caller's token.
var releaseScript = redis.NewScript(`
local n = 0
for _, key in ipairs(KEYS) do
	if redis.call("GET", key) == ARGV[1] then
		n = n + redis.call("DEL", key)
	end
end
return n
`)

// RedisLocker keeps batch locks in Redis so concurrent processes exclude each other.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to Redis and verifies it answers.
func NewRedisLocker(ctx context.Context, cfg config.RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewRedisLockerWithClient(client, cfg.Prefix), nil
}

// NewRedisLockerWithClient wraps a preconfigured client.
func NewRedisLockerWithClient(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire sets every key with one fresh owner token in a single script call.
// It fails with domain.ErrBatchLocked while another owner holds any of them.
func (l *RedisLocker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (func(context.Context) error, error) {
	if len(keys) == 0 {
		return func(context.Context) error { return nil }, nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = l.prefix + key
	}
	token := uuid.NewString()

	held, err := acquireScript.Run(ctx, l.client, fullKeys, token, ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", keys[0], err)
	}
	if held > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchLocked, keys[held-1])
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, fullKeys, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release %s: %w", keys[0], err)
		}
		return nil
	}
	return release, nil
}

// Close releases the underlying client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
