package locking

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker serializes same-shopper finalizations across instances using
// SET NX with a TTL. The TTL is a liveness guard against a crashed holder,
// not a correctness mechanism; it must comfortably exceed the confirmation
// timeout.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(client *redis.Client, ttl time.Duration, retries int, retryDelay time.Duration, logger zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Lock acquires the shopper lock, retrying a bounded number of times.
func (l *RedisLocker) Lock(ctx context.Context, shopperID int64) (func(), error) {
	key := fmt.Sprintf("lock:shopper:%d", shopperID)
	token := uuid.New().String()

	for i := 0; i < l.retries; i++ {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire shopper lock: %w", err)
		}
		if acquired {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	return nil, domainErrors.ErrLockAcquisitionFailed
}

func (l *RedisLocker) release(key, token string) {
	// Release outlives the caller's context; a finalize that already decided
	// must still give the lock back.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := releaseLockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("Failed to release shopper lock")
		return
	}
	if val, ok := result.(int64); !ok || val == 0 {
		l.logger.Warn().Str("key", key).Msg("Shopper lock expired before release")
	}
}
